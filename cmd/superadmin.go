package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/models"
	"github.com/shubhamforall/petstore-api/validation"
)

type superAdminInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" trim:"false" validate:"required,min=6,max=50"`
	FirstName   string `json:"first-name" validate:"required,max=100"`
	LastName    string `json:"last-name" validate:"required,max=100"`
	PhoneNumber string `json:"phone" validate:"omitempty,max=20"`
}

var superAdminFlags = []string{"email", "password", "first-name", "last-name", "phone"}

// newSuperAdminCommand seeds the first SuperAdmin. Every flag can also come from
// SUPERADMIN_<FLAG> (dashes as underscores). An existing email is left untouched.
func newSuperAdminCommand(envFile *string) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create the SuperAdmin user if it does not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			if cfg.BcryptCost > 0 {
				models.PasswordCost = cfg.BcryptCost
			}
			raw := make(map[string]any, len(superAdminFlags))
			for _, f := range superAdminFlags {
				raw[f] = v.GetString(f)
			}
			var in superAdminInput
			if err := validation.New().Validate(raw, &in); err != nil {
				return describe(err)
			}

			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			created, err := database.EnsureUser(cmd.Context(), database.NewUserStore(db), &models.User{
				Email:       in.Email,
				FirstName:   in.FirstName,
				LastName:    in.LastName,
				PhoneNumber: in.PhoneNumber,
				Role:        models.RoleSuperAdmin,
			}, in.Password)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintln(cmd.OutOrStdout(), "Super admin already exists")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Super admin created")
			return nil
		},
	}

	cmd.Flags().String("email", "", "super admin email")
	cmd.Flags().String("password", "", "super admin password")
	cmd.Flags().String("first-name", "Super", "first name")
	cmd.Flags().String("last-name", "Admin", "last name")
	cmd.Flags().String("phone", "", "phone number")

	v.SetEnvPrefix("SUPERADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, f := range superAdminFlags {
		_ = v.BindPFlag(f, cmd.Flags().Lookup(f))
	}
	return cmd
}

// describe flattens validation details into one line for the terminal.
func describe(err error) error {
	var ae *apperror.Error
	if !errors.As(err, &ae) || len(ae.Details) == 0 {
		return err
	}
	msgs := make([]string, len(ae.Details))
	for i, d := range ae.Details {
		msgs[i] = d.Message
	}
	return fmt.Errorf("%s: %s", ae.Message, strings.Join(msgs, "; "))
}
