package directory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/2beens/partnerdesk/internal/db"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"
)

type Service struct {
	ID          int64  `json:"id"`
	PartnerID   string `json:"partner_id,omitempty"`
	PartnerName string `json:"partner_name"`
	Service     string `json:"service,omitempty"`
	ServiceType string `json:"service_type,omitempty"`
	Price       string `json:"price,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Country     string `json:"country,omitempty"`
	Location    string `json:"location,omitempty"`
}

type ServiceGroup struct {
	PartnerID   string    `json:"partner_id,omitempty"`
	PartnerName string    `json:"partner_name"`
	Country     string    `json:"country,omitempty"`
	Location    string    `json:"location,omitempty"`
	Services    []Service `json:"services"`
}

type ServiceQuery struct {
	Country  string
	Location string
	Keyword  string
}

type place struct {
	country, location string
}

// places indexes partner country/location by trimmed ID and trimmed name.
// The first row wins for duplicated names.
func (d *Directory) places(ctx context.Context) (byID, byName map[string]place, err error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT "Partner ID", "Partner Name", "Country", "Location" FROM %s ORDER BY rowid`,
		db.QuoteIdent(partnersTable),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("select partner places: %w", err)
	}
	defer rows.Close()

	byID = map[string]place{}
	byName = map[string]place{}
	for rows.Next() {
		var id, name, country, location nullText
		if err := rows.Scan(&id, &name, &country, &location); err != nil {
			return nil, nil, fmt.Errorf("scan partner place: %w", err)
		}
		p := place{country: country.get(), location: location.get()}
		if key := strings.TrimSpace(id.get()); key != "" {
			if _, seen := byID[key]; !seen {
				byID[key] = p
			}
		}
		if key := strings.TrimSpace(name.get()); key != "" {
			if _, seen := byName[key]; !seen {
				byName[key] = p
			}
		}
	}
	return byID, byName, rows.Err()
}

// Services returns service rows enriched with partner country and location,
// grouped per partner. Country and location come from the partner with the
// same ID; each one still missing is taken from the partner with the same name.
func (d *Directory) Services(ctx context.Context, q ServiceQuery) (_ []ServiceGroup, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "directory.services")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	byID, byName, err := d.places(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT "id", "Partner ID", "Partner Name", "Service", "Service Type", "Price", "Notes" FROM %s ORDER BY "id"`,
		db.QuoteIdent(servicesTable),
	))
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	groups := map[string]*ServiceGroup{}
	for rows.Next() {
		var (
			s                                                    Service
			partnerID, partnerName, service, sType, price, notes nullText
		)
		if err := rows.Scan(&s.ID, &partnerID, &partnerName, &service, &sType, &price, &notes); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		s.PartnerID = strings.TrimSpace(partnerID.get())
		s.PartnerName = strings.TrimSpace(partnerName.get())
		s.Service = service.get()
		s.ServiceType = sType.get()
		s.Price = price.get()
		s.Notes = notes.get()

		if s.PartnerName == "" {
			continue
		}

		if p, ok := byID[s.PartnerID]; ok {
			s.Country, s.Location = p.country, p.location
		}
		if s.Country == "" || s.Location == "" {
			if p, ok := byName[s.PartnerName]; ok {
				s.Country = cmp.Or(s.Country, p.country)
				s.Location = cmp.Or(s.Location, p.location)
			}
		}

		if q.Country != "" && s.Country != q.Country {
			continue
		}
		if q.Location != "" && s.Location != q.Location {
			continue
		}
		if q.Keyword != "" && !containsFold(s.PartnerName, q.Keyword) {
			continue
		}

		key := "id:" + s.PartnerID
		if s.PartnerID == "" {
			key = "name:" + s.PartnerName
		}
		group, ok := groups[key]
		if !ok {
			group = &ServiceGroup{
				PartnerID:   s.PartnerID,
				PartnerName: s.PartnerName,
				Country:     s.Country,
				Location:    s.Location,
			}
			groups[key] = group
		}
		group.Services = append(group.Services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]ServiceGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	slices.SortFunc(result, func(a, b ServiceGroup) int {
		return cmp.Or(
			cmp.Compare(a.PartnerID, b.PartnerID),
			cmp.Compare(a.PartnerName, b.PartnerName),
		)
	})
	return result, nil
}

// ServiceOptions lists the enriched countries, and locations narrowed by country.
func (d *Directory) ServiceOptions(ctx context.Context, country string) (countries, locations []string, err error) {
	groups, err := d.Services(ctx, ServiceQuery{})
	if err != nil {
		return nil, nil, err
	}
	seenCountry, seenLocation := map[string]bool{}, map[string]bool{}
	countries, locations = []string{}, []string{}
	for _, g := range groups {
		for _, s := range g.Services {
			if s.Country != "" && !seenCountry[s.Country] {
				seenCountry[s.Country] = true
				countries = append(countries, s.Country)
			}
			if s.Location != "" && !seenLocation[s.Location] && (country == "" || s.Country == country) {
				seenLocation[s.Location] = true
				locations = append(locations, s.Location)
			}
		}
	}
	slices.Sort(countries)
	slices.Sort(locations)
	return countries, locations, nil
}
