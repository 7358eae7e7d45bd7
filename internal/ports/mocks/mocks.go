// Package mocks holds testify mocks for the ports.
package mocks

import (
	"context"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
	"github.com/stretchr/testify/mock"
)

type AccountRepository struct {
	mock.Mock
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *AccountRepository {
	m := &AccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Account), args.Error(1)
}

func (m *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]domain.Account)
	return accounts, args.Error(1)
}

func (m *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *AccountRepository) Delete(ctx context.Context, id domain.AccountID) error {
	return m.Called(ctx, id).Error(0)
}

type SecretStore struct {
	mock.Mock
}

var _ ports.SecretStore = (*SecretStore)(nil)

func NewSecretStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *SecretStore {
	m := &SecretStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SecretStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *SecretStore) Put(ctx context.Context, key string, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *SecretStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type TicketIssuer struct {
	mock.Mock
}

var _ ports.TicketIssuer = (*TicketIssuer)(nil)

func NewTicketIssuer(t interface {
	mock.TestingT
	Cleanup(func())
}) *TicketIssuer {
	m := &TicketIssuer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TicketIssuer) IssueTicket(ctx context.Context, credential domain.Credential) (string, error) {
	args := m.Called(ctx, credential)
	return args.String(0), args.Error(1)
}
