package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/errs"
)

type employeeDoc struct {
	employee.Employee `bson:",inline"`
	PasswordHash      string `bson:"password_hash"`
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (employeeDoc, error) {
	var doc employeeDoc
	if err := s.employees.FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return employeeDoc{}, errs.NotFound("employee not found")
		}
		return employeeDoc{}, fmt.Errorf("find employee: %w", err)
	}
	return doc, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (employee.Employee, error) {
	doc, err := s.findOne(ctx, bson.M{"email": employee.NormalizeEmail(email)})
	return doc.Employee, err
}

func (s *Store) FindByID(ctx context.Context, id string) (employee.Employee, error) {
	doc, err := s.findOne(ctx, bson.M{"_id": id})
	return doc.Employee, err
}

func (s *Store) Credentials(ctx context.Context, email string) (employee.Credentials, error) {
	doc, err := s.findOne(ctx, bson.M{"email": employee.NormalizeEmail(email)})
	if err != nil {
		return employee.Credentials{}, err
	}
	return employee.Credentials{ID: doc.ID, Email: doc.Email, Role: doc.Role, PasswordHash: doc.PasswordHash}, nil
}

func (s *Store) Create(ctx context.Context, rec employee.Record) (employee.Employee, error) {
	rec.Email = employee.NormalizeEmail(rec.Email)
	if _, err := s.employees.InsertOne(ctx, employeeDoc{Employee: rec.Employee, PasswordHash: rec.PasswordHash}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return employee.Employee{}, errs.Conflict("email already registered")
		}
		return employee.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	return rec.Employee, nil
}

func (s *Store) Update(ctx context.Context, id string, patch employee.Patch) (employee.Employee, error) {
	set := employeeSet(patch)
	set["updated_at"] = time.Now().UTC()

	var doc employeeDoc
	err := s.employees.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return employee.Employee{}, errs.NotFound("employee not found")
		}
		if mongo.IsDuplicateKeyError(err) {
			return employee.Employee{}, errs.Conflict("email already registered")
		}
		return employee.Employee{}, fmt.Errorf("update employee: %w", err)
	}
	return doc.Employee, nil
}

func employeeSet(patch employee.Patch) bson.M {
	set := bson.M{}
	if patch.Email != nil {
		set["email"] = employee.NormalizeEmail(*patch.Email)
	}
	strs := map[string]*string{
		"name":              patch.Name,
		"employee_code":     patch.EmployeeCode,
		"designation":       patch.Designation,
		"national_id":       patch.NationalID,
		"nationality":       patch.Nationality,
		"present_address":   patch.PresentAddress,
		"permanent_address": patch.PermanentAddress,
		"emergency_contact": patch.EmergencyContact,
		"image_url":         patch.ImageURL,
	}
	for field, value := range strs {
		if value != nil {
			set[field] = *value
		}
	}
	if patch.Role != nil {
		set["role"] = *patch.Role
	}
	if patch.JoinedDate != nil {
		set["joined_date"] = *patch.JoinedDate
	}
	if patch.Salary != nil {
		set["salary"] = *patch.Salary
	}
	for key, counter := range patch.Balances {
		set["balances."+string(key)+".balance"] = counter.Balance
		set["balances."+string(key)+".taken"] = counter.Taken
	}
	return set
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := s.employees.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("employee not found")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.employees.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if res.DeletedCount == 0 {
		return errs.NotFound("employee not found")
	}
	if _, err := s.requests.DeleteMany(ctx, bson.M{"employee_id": id}); err != nil {
		return fmt.Errorf("delete employee requests: %w", err)
	}
	return nil
}

func (s *Store) ResetCategoryBalances(ctx context.Context, defaults employee.BalanceDefaults) (int, error) {
	res, err := s.employees.UpdateMany(ctx, bson.M{}, bson.M{"$set": bson.M{
		"balances.annual.balance": defaults.Annual,
		"balances.fr.balance":     defaults.FR,
		"updated_at":              time.Now().UTC(),
	}})
	if err != nil {
		return 0, fmt.Errorf("reset balances: %w", err)
	}
	return int(res.MatchedCount), nil
}

func (s *Store) List(ctx context.Context, filter employee.ListFilter) (employee.ListResult, error) {
	query := bson.M{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}
	if filter.Role != "" {
		query["role"] = filter.Role
	}

	total, err := s.employees.CountDocuments(ctx, query)
	if err != nil {
		return employee.ListResult{}, fmt.Errorf("count employees: %w", err)
	}
	cursor, err := s.employees.Find(ctx, query,
		findOptions(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}, filter.Limit, filter.Offset))
	if err != nil {
		return employee.ListResult{}, fmt.Errorf("list employees: %w", err)
	}
	var docs []employeeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return employee.ListResult{}, fmt.Errorf("decode employees: %w", err)
	}

	result := employee.ListResult{Employees: make([]employee.Employee, 0, len(docs)), Total: int(total)}
	for _, doc := range docs {
		result.Employees = append(result.Employees, doc.Employee)
	}
	return result, nil
}
