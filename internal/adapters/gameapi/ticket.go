package gameapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/ports"
)

const (
	ticketPath   = "/v1/authentication-ticket/"
	ticketHeader = "rbx-authentication-ticket"
)

var ErrMissingTicket = errors.New("ticket response missing authentication ticket")

type TicketIssuer struct {
	Client
	BaseURL string
}

var _ ports.TicketIssuer = (*TicketIssuer)(nil)

func NewTicketIssuer(baseURL string, client Client) *TicketIssuer {
	if baseURL == "" {
		baseURL = DefaultAuthBaseURL
	}
	return &TicketIssuer{Client: client.withDefaults(), BaseURL: baseURL}
}

func (t *TicketIssuer) IssueTicket(ctx context.Context, credential domain.Credential) (string, error) {
	if strings.TrimSpace(string(credential)) == "" {
		return "", domain.ErrNoCredential
	}

	endpoint, err := buildAPIURL(t.BaseURL, ticketPath)
	if err != nil {
		return "", err
	}

	resp, err := t.post(ctx, endpoint, credential, "application/json", []byte("{}"))
	if err != nil {
		return "", fmt.Errorf("request launch ticket: %w", err)
	}
	if resp.status < http.StatusOK || resp.status >= http.StatusMultipleChoices {
		return "", t.classify("ticket", resp)
	}

	ticket := strings.TrimSpace(resp.header.Get(ticketHeader))
	if ticket == "" {
		return "", ErrMissingTicket
	}
	return ticket, nil
}
