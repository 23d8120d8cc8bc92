// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Mongo's CreateMany is idempotent for
identical key/option sets, so re-running on every boot is safe. Problems are
aggregated so any failure is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureAccounts(ctx, db); err != nil {
		problems = append(problems, "accounts: "+err.Error())
	}
	if err := ensureClasses(ctx, db); err != nil {
		problems = append(problems, "classes: "+err.Error())
	}
	if err := ensureStudents(ctx, db); err != nil {
		problems = append(problems, "students: "+err.Error())
	}
	if err := ensureInvites(ctx, db); err != nil {
		problems = append(problems, "invites: "+err.Error())
	}
	if err := ensureAdminInvites(ctx, db); err != nil {
		problems = append(problems, "admin_invites: "+err.Error())
	}
	if err := ensureHomework(ctx, db); err != nil {
		problems = append(problems, "homework: "+err.Error())
	}
	if err := ensureAttendance(ctx, db); err != nil {
		problems = append(problems, "attendance: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureAccounts(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("accounts").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
	})
	return err
}

func ensureClasses(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("classes").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("owner"),
		},
		{
			Keys:    bson.D{{Key: "admins.email", Value: 1}},
			Options: options.Index().SetName("admin_email"),
		},
	})
	return err
}

func ensureStudents(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("students").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "class_id", Value: 1}},
			Options: options.Index().SetName("class"),
		},
		{
			Keys:    bson.D{{Key: "guardians.email", Value: 1}},
			Options: options.Index().SetName("guardian_email"),
		},
		{
			Keys:    bson.D{{Key: "last_name_ci", Value: 1}, {Key: "first_name_ci", Value: 1}},
			Options: options.Index().SetName("name_ci"),
		},
	})
	return err
}

// The invite ledger is queried by email on every reconciliation pass. The
// unique (email, student_id) pair enforces one invite per referenced entry.
func ensureInvites(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("invites").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "student_id", Value: 1}},
			Options: options.Index().SetName("email_student_unique").SetUnique(true),
		},
	})
	return err
}

func ensureAdminInvites(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("admin_invites").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "class_id", Value: 1}},
			Options: options.Index().SetName("email_class_unique").SetUnique(true),
		},
	})
	return err
}

func ensureHomework(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("homework").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}},
			Options: options.Index().SetName("student"),
		},
	})
	return err
}

func ensureAttendance(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("attendance").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("student_date"),
		},
	})
	return err
}
