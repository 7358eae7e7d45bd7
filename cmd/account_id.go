package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/bottingctl/internal/domain"
)

// parseAccountIDs accepts ids separated by commas and/or whitespace, e.g.
// "1,2 3". Duplicates are kept; the session normalizes them.
func parseAccountIDs(raw ...string) ([]domain.AccountID, error) {
	var ids []domain.AccountID
	for _, chunk := range raw {
		fields := strings.FieldsFunc(chunk, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		for _, field := range fields {
			id, err := domain.ParseAccountID(field)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// registeredAccountIDs lists every account in the registry, in id order.
func registeredAccountIDs(ctx context.Context, app *app) ([]domain.AccountID, error) {
	accounts, err := app.service.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	ids := make([]domain.AccountID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}
	return ids, nil
}

// accountNames maps ids to display names for the status view. Lookup
// failures only cost the names.
func accountNames(ctx context.Context, app *app) map[domain.AccountID]string {
	if app.service == nil {
		return nil
	}
	accounts, err := app.service.ListAccounts(ctx)
	if err != nil {
		return nil
	}

	names := make(map[domain.AccountID]string, len(accounts))
	for _, account := range accounts {
		if account.Name != "" {
			names[account.ID] = account.Name
		}
	}
	return names
}
