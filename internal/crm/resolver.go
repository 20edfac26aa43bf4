package crm

import (
	"fmt"
	"log/slog"
	"strings"

	"freeturn/internal/database"
	"freeturn/internal/email"
)

// Resolver finds or creates the person and organization behind an inbound
// message. People are deduplicated strictly by email address: an existing
// person is returned as-is even when the display name differs, so a spoofed
// or shared address can never corrupt an established identity.
type Resolver struct {
	people *database.PersonStore
	orgs   *database.OrganizationStore
	logger *slog.Logger
}

// NewResolver creates an entity resolver over the given stores.
func NewResolver(people *database.PersonStore, orgs *database.OrganizationStore, logger *slog.Logger) *Resolver {
	return &Resolver{people: people, orgs: orgs, logger: logger}
}

// ResolvePerson returns the person matching the message sender, creating the
// person and, if necessary, their organization first.
func (r *Resolver) ResolvePerson(parsed *email.ParsedMessage) (*database.Person, error) {
	existing, err := r.people.GetByEmail(parsed.FromAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	org, err := r.resolveOrganization(parsed.FromAddress)
	if err != nil {
		return nil, err
	}

	firstName, lastName := splitFullName(parsed.FullName)
	person, created, err := r.people.GetOrCreate(&database.Person{
		Email:          parsed.FromAddress,
		FirstName:      firstName,
		LastName:       lastName,
		OrganizationID: org.ID,
	})
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info("Created person", "email", person.Email, "organization", org.Name)
	}
	return person, nil
}

// resolveOrganization matches the sender's email domain against stored
// organization URLs, creating a new organization named after the first
// domain label when nothing matches.
func (r *Resolver) resolveOrganization(address string) (*database.Organization, error) {
	domain := domainOf(address)

	org, err := r.orgs.FindByURLContains(domain)
	if err != nil {
		return nil, err
	}
	if org != nil {
		return org, nil
	}

	org, created, err := r.orgs.GetOrCreate(&database.Organization{
		Name: capitalize(firstLabel(domain)),
		URL:  fmt.Sprintf("http://%s", domain),
	})
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info("Created organization", "name", org.Name, "url", org.URL)
	}
	return org, nil
}

// domainOf returns the part of an email address after the last "@". An
// address without "@" maps to itself, which keeps the "unknown" sentinel
// harmless.
func domainOf(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 {
		return address[at+1:]
	}
	return address
}

// firstLabel returns the leftmost dot-separated label of a domain.
func firstLabel(domain string) string {
	if dot := strings.Index(domain, "."); dot >= 0 {
		return domain[:dot]
	}
	return domain
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitFullName splits a display name on the first space into first and last
// name. When the name cannot be split, the whole value becomes the last name.
func splitFullName(fullName string) (firstName, lastName string) {
	parts := strings.SplitN(strings.TrimSpace(fullName), " ", 2)
	if len(parts) != 2 {
		return "", strings.TrimSpace(fullName)
	}
	return parts[0], parts[1]
}
