package employee

import (
	"encoding/json"
	"time"

	"hrleave/internal/domain/auth"
)

type BalanceKey string

const (
	BalanceAnnual BalanceKey = "annual"
	BalanceFR     BalanceKey = "fr"
	BalanceSick   BalanceKey = "sick"
)

var BalanceKeys = []BalanceKey{BalanceAnnual, BalanceFR, BalanceSick}

type Counter struct {
	Balance float64 `json:"balance" bson:"balance"`
	Taken   float64 `json:"taken" bson:"taken"`
}

// Remaining may be negative; nothing prevents taking more than the balance.
func (c Counter) Remaining() float64 {
	return c.Balance - c.Taken
}

func (c Counter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Balance   float64 `json:"balance"`
		Taken     float64 `json:"taken"`
		Remaining float64 `json:"remaining"`
	}{c.Balance, c.Taken, c.Remaining()})
}

type Balances struct {
	Annual Counter `json:"annual" bson:"annual"`
	FR     Counter `json:"fr" bson:"fr"`
	Sick   Counter `json:"sick" bson:"sick"`
}

func (b Balances) Get(key BalanceKey) (Counter, bool) {
	switch key {
	case BalanceAnnual:
		return b.Annual, true
	case BalanceFR:
		return b.FR, true
	case BalanceSick:
		return b.Sick, true
	}
	return Counter{}, false
}

func (b *Balances) Set(key BalanceKey, c Counter) bool {
	switch key {
	case BalanceAnnual:
		b.Annual = c
	case BalanceFR:
		b.FR = c
	case BalanceSick:
		b.Sick = c
	default:
		return false
	}
	return true
}

type Employee struct {
	ID               string     `json:"id" bson:"_id"`
	Email            string     `json:"email" bson:"email"`
	Name             string     `json:"name" bson:"name"`
	Role             auth.Role  `json:"role" bson:"role"`
	EmployeeCode     string     `json:"employeeId,omitempty" bson:"employee_code,omitempty"`
	Designation      string     `json:"designation,omitempty" bson:"designation,omitempty"`
	JoinedDate       *time.Time `json:"joinedDate,omitempty" bson:"joined_date,omitempty"`
	NationalID       string     `json:"nationalId,omitempty" bson:"national_id,omitempty"`
	Nationality      string     `json:"nationality,omitempty" bson:"nationality,omitempty"`
	PresentAddress   string     `json:"presentAddress,omitempty" bson:"present_address,omitempty"`
	PermanentAddress string     `json:"permanentAddress,omitempty" bson:"permanent_address,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty" bson:"emergency_contact,omitempty"`
	Salary           float64    `json:"salary,omitempty" bson:"salary,omitempty"`
	ImageURL         string     `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	Balances         Balances   `json:"balances" bson:"balances"`
	CreatedAt        time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Record is what stores persist: the employee plus its password hash.
type Record struct {
	Employee
	PasswordHash string
}

type Credentials struct {
	ID           string
	Email        string
	Role         auth.Role
	PasswordHash string
}

type NewEmployee struct {
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Password         string     `json:"password"`
	Role             auth.Role  `json:"role"`
	EmployeeCode     string     `json:"employeeId"`
	Designation      string     `json:"designation"`
	JoinedDate       *time.Time `json:"joinedDate"`
	NationalID       string     `json:"nationalId"`
	Nationality      string     `json:"nationality"`
	PresentAddress   string     `json:"presentAddress"`
	PermanentAddress string     `json:"permanentAddress"`
	EmergencyContact string     `json:"emergencyContact"`
	Salary           float64    `json:"salary"`
	ImageURL         string     `json:"imageUrl"`
	Balances         *Balances  `json:"balances"`
}

// Patch carries only the fields an edit supplies.
type Patch struct {
	Email            *string
	Name             *string
	Role             *auth.Role
	EmployeeCode     *string
	Designation      *string
	JoinedDate       *time.Time
	NationalID       *string
	Nationality      *string
	PresentAddress   *string
	PermanentAddress *string
	EmergencyContact *string
	Salary           *float64
	ImageURL         *string
	Balances         map[BalanceKey]Counter
}

func (p Patch) Empty() bool {
	return p.Email == nil && p.Name == nil && p.Role == nil && p.EmployeeCode == nil &&
		p.Designation == nil && p.JoinedDate == nil && p.NationalID == nil &&
		p.Nationality == nil && p.PresentAddress == nil && p.PermanentAddress == nil &&
		p.EmergencyContact == nil && p.Salary == nil && p.ImageURL == nil && len(p.Balances) == 0
}

// Apply copies every supplied field onto emp.
func (p Patch) Apply(emp *Employee) {
	setString(&emp.Email, p.Email)
	setString(&emp.Name, p.Name)
	if p.Role != nil {
		emp.Role = *p.Role
	}
	setString(&emp.EmployeeCode, p.EmployeeCode)
	setString(&emp.Designation, p.Designation)
	if p.JoinedDate != nil {
		joined := *p.JoinedDate
		emp.JoinedDate = &joined
	}
	setString(&emp.NationalID, p.NationalID)
	setString(&emp.Nationality, p.Nationality)
	setString(&emp.PresentAddress, p.PresentAddress)
	setString(&emp.PermanentAddress, p.PermanentAddress)
	setString(&emp.EmergencyContact, p.EmergencyContact)
	if p.Salary != nil {
		emp.Salary = *p.Salary
	}
	setString(&emp.ImageURL, p.ImageURL)
	for key, counter := range p.Balances {
		emp.Balances.Set(key, counter)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Settings is the self-service subset of Patch.
type Settings struct {
	Name             *string `json:"name"`
	Nationality      *string `json:"nationality"`
	PresentAddress   *string `json:"presentAddress"`
	PermanentAddress *string `json:"permanentAddress"`
	EmergencyContact *string `json:"emergencyContact"`
	ImageURL         *string `json:"imageUrl"`
}

func (s Settings) Patch() Patch {
	return Patch{
		Name:             s.Name,
		Nationality:      s.Nationality,
		PresentAddress:   s.PresentAddress,
		PermanentAddress: s.PermanentAddress,
		EmergencyContact: s.EmergencyContact,
		ImageURL:         s.ImageURL,
	}
}

// BalanceDefaults seeds new employees; a period reset applies only Annual and FR.
type BalanceDefaults struct {
	Annual float64
	FR     float64
	Sick   float64
}

type ListFilter struct {
	Search string
	Role   auth.Role
	Limit  int
	Offset int
}

type ListResult struct {
	Employees []Employee
	Total     int
}

type DirectoryEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}
