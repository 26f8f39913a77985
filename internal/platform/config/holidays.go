package config

import (
	"fmt"

	"github.com/spf13/viper"

	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/leave"
)

type holidayFile struct {
	Weekly   []string `mapstructure:"weekly"`
	Holidays []string `mapstructure:"holidays"`
}

// Calendar merges HOLIDAYS_FILE with PUBLIC_HOLIDAYS. WEEKLY_HOLIDAYS wins
// over the file's weekly list when set.
func (c Config) Calendar() (leave.Calendar, error) {
	var file holidayFile
	if c.HolidaysFile != "" {
		v := viper.New()
		v.SetConfigFile(c.HolidaysFile)
		if err := v.ReadInConfig(); err != nil {
			return leave.Calendar{}, fmt.Errorf("read holidays file: %w", err)
		}
		if err := v.Unmarshal(&file); err != nil {
			return leave.Calendar{}, fmt.Errorf("decode holidays file: %w", err)
		}
	}

	weekly := file.Weekly
	if env := splitList(c.WeeklyHolidays); len(env) > 0 {
		weekly = env
	}
	holidays := append(file.Holidays, splitList(c.PublicHolidays)...)
	return leave.ParseCalendar(weekly, holidays)
}

func (c Config) BalanceDefaults() employee.BalanceDefaults {
	return employee.BalanceDefaults{
		Annual: c.DefaultAnnualLeave,
		FR:     c.DefaultFRLeave,
		Sick:   c.DefaultSickLeave,
	}
}
