package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/2beens/partnerdesk/internal/db"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type Partner struct {
	ID            string `json:"partner_id"`
	Name          string `json:"partner_name"`
	Country       string `json:"country,omitempty"`
	Location      string `json:"location,omitempty"`
	Region        string `json:"region,omitempty"`
	Status        string `json:"status,omitempty"`
	PartnerType   string `json:"partner_type,omitempty"`
	StandardType  string `json:"standard_type,omitempty"`
	Description   string `json:"description,omitempty"`
	Address       string `json:"address,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
}

// PartnerQuery filters are exact matches; empty means no filter. Keyword is
// matched case-insensitively against name, description and location.
type PartnerQuery struct {
	Country     string
	Location    string
	Region      string
	Status      string
	PartnerType string
	Keyword     string
}

type PartnerOptions struct {
	Countries    []string `json:"countries"`
	Locations    []string `json:"locations"`
	Regions      []string `json:"regions"`
	Statuses     []string `json:"statuses"`
	PartnerTypes []string `json:"partner_types"`
}

var partnerColumns = []string{
	"Partner ID", "Partner Name", "Country", "Location", "Region", "Status",
	"Partner Type", "Standard_Type", "Description", "Address", "Contact Person",
}

func (d *Directory) SearchPartners(ctx context.Context, q PartnerQuery) (_ []Partner, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "directory.search_partners")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("country", q.Country),
		attribute.String("keyword", q.Keyword),
	)

	quoted := make([]string, len(partnerColumns))
	for i, c := range partnerColumns {
		quoted[i] = db.QuoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 1", strings.Join(quoted, ", "), db.QuoteIdent(partnersTable))

	var args []any
	for _, f := range []struct{ column, value string }{
		{"Country", q.Country},
		{"Location", q.Location},
		{"Region", q.Region},
		{"Status", q.Status},
		{"Partner Type", q.PartnerType},
	} {
		if f.value == "" {
			continue
		}
		query += fmt.Sprintf(" AND %s = ?", db.QuoteIdent(f.column))
		args = append(args, f.value)
	}
	query += " ORDER BY rowid"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search partners: %w", err)
	}
	defer rows.Close()

	partners := []Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		if q.Keyword != "" &&
			!containsFold(p.Name, q.Keyword) &&
			!containsFold(p.Description, q.Keyword) &&
			!containsFold(p.Location, q.Keyword) {
			continue
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPartner(row scanner) (Partner, error) {
	var p Partner
	var (
		id, country, location, region, status, partnerType nullText
		standardType, description, address, contact        nullText
	)
	err := row.Scan(&id, &p.Name, &country, &location, &region, &status,
		&partnerType, &standardType, &description, &address, &contact)
	if err != nil {
		return Partner{}, fmt.Errorf("scan partner: %w", err)
	}
	p.ID = id.get()
	p.Country = country.get()
	p.Location = location.get()
	p.Region = region.get()
	p.Status = status.get()
	p.PartnerType = partnerType.get()
	p.StandardType = standardType.get()
	p.Description = description.get()
	p.Address = address.get()
	p.ContactPerson = contact.get()
	return p, nil
}

// PartnerByName returns the first partner with exactly this name.
func (d *Directory) PartnerByName(ctx context.Context, name string) (*Partner, error) {
	quoted := make([]string, len(partnerColumns))
	for i, c := range partnerColumns {
		quoted[i] = db.QuoteIdent(c)
	}
	row := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE "Partner Name" = ? ORDER BY rowid LIMIT 1`,
			strings.Join(quoted, ", "), db.QuoteIdent(partnersTable)),
		name,
	)
	p, err := scanPartner(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Options lists the filter values; locations and regions are narrowed by
// country when one is given.
func (d *Directory) Options(ctx context.Context, country string) (*PartnerOptions, error) {
	var (
		opts PartnerOptions
		err  error
	)
	if opts.Countries, err = d.distinct(ctx, "Country", "", ""); err != nil {
		return nil, err
	}
	if opts.Locations, err = d.distinct(ctx, "Location", "Country", country); err != nil {
		return nil, err
	}
	if opts.Regions, err = d.distinct(ctx, "Region", "Country", country); err != nil {
		return nil, err
	}
	if opts.Statuses, err = d.distinct(ctx, "Status", "", ""); err != nil {
		return nil, err
	}
	if opts.PartnerTypes, err = d.distinct(ctx, "Partner Type", "", ""); err != nil {
		return nil, err
	}
	return &opts, nil
}
