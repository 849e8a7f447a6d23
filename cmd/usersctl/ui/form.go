package ui

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/users-api/internal/account"
	"github.com/redmonkez12/users-api/internal/user"
)

// RunUserForm asks for the fields of a new user, prefilled from initial.
func RunUserForm(initial account.NewUserRequest) (*account.NewUserRequest, error) {
	req := initial

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&req.Name).
				Validate(validateName),

			huh.NewInput().
				Title("Email").
				Placeholder("ann@example.com").
				Value(&req.Email).
				Validate(validateEmail),

			huh.NewInput().
				Title("Password").
				Description("8 to 72 characters").
				EchoMode(huh.EchoModePassword).
				Value(&req.Password).
				Validate(validatePassword),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Date of birth").
				Description("YYYY-MM-DD, leave empty for today").
				Placeholder("1990-01-01").
				Value(&req.Dob).
				Validate(validateDob),

			huh.NewText().
				Title("Description").
				CharLimit(255).
				Value(&req.Description),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Dob = strings.TrimSpace(req.Dob)

	PrintSummary(&req)
	return &req, nil
}

// PrintSummary prints the user about to be created. The password is never echoed.
func PrintSummary(req *account.NewUserRequest) {
	dob := req.Dob
	if dob == "" {
		dob = "today"
	}

	fmt.Println(titleStyle.Render("New user"))
	fmt.Println(labelStyle.Render("  Name:") + req.Name)
	fmt.Println(labelStyle.Render("  Email:") + req.Email)
	fmt.Println(labelStyle.Render("  Born:") + dob)
	if req.Description != "" {
		fmt.Println(labelStyle.Render("  About:") + req.Description)
	}
	fmt.Println()
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}

func validateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("name is required")
	}
	if len(s) > 255 {
		return errors.New("name must be at most 255 characters")
	}
	return nil
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validatePassword(s string) error {
	if len(s) < 8 || len(s) > 72 {
		return errors.New("password must be 8 to 72 characters")
	}
	return nil
}

func validateDob(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(user.DateLayout, s); err != nil {
		return errors.New("date must look like 1990-01-01")
	}
	return nil
}
