package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/database"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "create-super-admin":
		err = createSuperAdmin(os.Args[2:])
	case "reset-password":
		err = resetPassword(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		color.Red("[ERROR] %v", err)
		os.Exit(1)
	}
}

func adminRepository() repository.AdminRepository {
	database.SetupDatabase()
	return repository.NewAdminRepository(database.GetDB())
}

func createSuperAdmin(args []string) error {
	fs := flag.NewFlagSet("create-super-admin", flag.ExitOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password, at least 8 characters")
	email := fs.String("email", "", "contact email")
	name := fs.String("name", "", "full name")
	_ = fs.Parse(args)

	if strings.TrimSpace(*username) == "" || len(*password) < 8 {
		fs.Usage()
		return errors.New("username and a password of at least 8 characters are required")
	}

	repo := adminRepository()
	if _, err := repo.GetByUsername(*username); err == nil {
		return fmt.Errorf("admin %q already exists", *username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	admin, err := models.NewAdmin(strings.TrimSpace(*username), *password, permission.RoleSuperAdmin, nil)
	if err != nil {
		return err
	}
	admin.Email = strings.TrimSpace(*email)
	admin.FullName = strings.TrimSpace(*name)
	if err := admin.Validate(); err != nil {
		return err
	}
	if err := repo.Create(admin); err != nil {
		return err
	}
	color.Green("[OK] Super admin %s created with id %d", admin.Username, admin.ID)
	return nil
}

func resetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "new password, at least 8 characters")
	_ = fs.Parse(args)

	if strings.TrimSpace(*username) == "" || len(*password) < 8 {
		fs.Usage()
		return errors.New("username and a password of at least 8 characters are required")
	}

	repo := adminRepository()
	admin, err := repo.GetByUsername(*username)
	if err != nil {
		return fmt.Errorf("admin %q: %w", *username, err)
	}
	if err := admin.SetPassword(*password); err != nil {
		return err
	}
	if err := repo.Update(admin); err != nil {
		return err
	}
	color.Yellow("[OK] Password of %s changed. Existing tokens stay valid until they expire.", admin.Username)
	return nil
}

func printUsage() {
	color.Cyan("Usage: bantayctl <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  create-super-admin --username NAME --password PASS [--email EMAIL] [--name FULL NAME]")
	fmt.Println("  reset-password     --username NAME --password PASS")
}
