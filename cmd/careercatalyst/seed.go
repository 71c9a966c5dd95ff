package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	internalauth "careercatalyst/internal/auth"
	"careercatalyst/internal/config"
	"careercatalyst/internal/models"
	"careercatalyst/internal/store"
)

// seedFile is the fixture format of `careercatalyst seed`.
type seedFile struct {
	Institutions  []seedAccount `yaml:"institutions"`
	Organizations []seedAccount `yaml:"organizations"`
}

type seedAccount struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Location string `yaml:"location"`
	Industry string `yaml:"industry"`
}

type seedResult struct {
	Created []seedOutcome `json:"created"`
	Skipped []seedOutcome `json:"skipped"`
}

type seedOutcome struct {
	Kind  models.AccountKind `json:"kind"`
	ID    string             `json:"id,omitempty"`
	Email string             `json:"email"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create institution and organization accounts from a YAML file",
		Long: "Accounts whose email already exists are skipped, so the same file can be\n" +
			"applied repeatedly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadSeedFile(args[0])
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := applySeed(cmd.Context(), st, file, time.Now().UTC())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(result)
			}
			for _, item := range result.Created {
				_ = writePlain("created %s %s <%s>\n", item.Kind, item.ID, item.Email)
			}
			for _, item := range result.Skipped {
				_ = writePlain("skipped %s <%s>: email exists\n", item.Kind, item.Email)
			}
			return nil
		},
	}
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Institutions) == 0 && len(file.Organizations) == 0 {
		return nil, fmt.Errorf("%s: no institutions or organizations", path)
	}
	return &file, nil
}

// applySeed validates every entry before writing any of them.
func applySeed(ctx context.Context, st store.AccountStore, file *seedFile, now time.Time) (seedResult, error) {
	result := seedResult{Created: []seedOutcome{}, Skipped: []seedOutcome{}}

	type pending struct {
		kind    models.AccountKind
		account seedAccount
		email   string
		hash    string
	}
	var entries []pending
	groups := []struct {
		kind     models.AccountKind
		accounts []seedAccount
	}{
		{models.AccountInstitution, file.Institutions},
		{models.AccountOrganization, file.Organizations},
	}
	for _, group := range groups {
		kind := group.kind
		for i, account := range group.accounts {
			if account.Name == "" {
				return result, fmt.Errorf("%s %d: name is required", kind, i+1)
			}
			email, err := internalauth.NormalizeEmail(account.Email)
			if err != nil {
				return result, fmt.Errorf("%s %d: %w", kind, i+1, err)
			}
			hash, err := internalauth.HashPassword(account.Password)
			if err != nil {
				return result, fmt.Errorf("%s %s: %w", kind, email, err)
			}
			entries = append(entries, pending{kind: kind, account: account, email: email, hash: hash})
		}
	}

	for _, entry := range entries {
		outcome := seedOutcome{Kind: entry.kind, Email: entry.email}
		id, err := createSeedAccount(ctx, st, entry.kind, entry.account, entry.email, entry.hash, now)
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			result.Skipped = append(result.Skipped, outcome)
		case err != nil:
			return result, fmt.Errorf("create %s %s: %w", entry.kind, entry.email, err)
		default:
			outcome.ID = id
			result.Created = append(result.Created, outcome)
		}
	}
	return result, nil
}

func createSeedAccount(ctx context.Context, st store.AccountStore, kind models.AccountKind, account seedAccount, email, hash string, now time.Time) (string, error) {
	switch kind {
	case models.AccountInstitution:
		id, err := store.GenerateAccountID(kind, st.InstitutionExists)
		if err != nil {
			return "", err
		}
		return id, st.CreateInstitution(ctx, &models.Institution{
			ID: id, Name: account.Name, Email: email, PasswordHash: hash,
			Location: account.Location, CreatedAt: now, UpdatedAt: now,
		})
	case models.AccountOrganization:
		id, err := store.GenerateAccountID(kind, st.OrganizationExists)
		if err != nil {
			return "", err
		}
		return id, st.CreateOrganization(ctx, &models.Organization{
			ID: id, Name: account.Name, Email: email, PasswordHash: hash,
			Industry: account.Industry, CreatedAt: now, UpdatedAt: now,
		})
	}
	return "", fmt.Errorf("cannot seed %s accounts", kind)
}
