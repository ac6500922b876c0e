package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/2beens/partnerdesk/internal/db"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type Sentiment int

const (
	SentimentGood Sentiment = iota + 1
	SentimentNeutral
	SentimentBad
)

func (s Sentiment) String() string {
	switch s {
	case SentimentGood:
		return "good"
	case SentimentBad:
		return "bad"
	default:
		return "neutral"
	}
}

func (s Sentiment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sentiment) UnmarshalText(text []byte) error {
	switch string(text) {
	case "good":
		*s = SentimentGood
	case "neutral":
		*s = SentimentNeutral
	case "bad":
		*s = SentimentBad
	default:
		return fmt.Errorf("unknown sentiment: %q", text)
	}
	return nil
}

var (
	goodWords    = []string{"positive", "good", "excellent", "great", "outstanding"}
	neutralWords = []string{"neutral", "suggestion", "improvement", "general"}
	badWords     = []string{"negative", "bad", "poor", "complaint", "issue"}
)

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Classify maps a free-text feedback type to a sentiment. Good words win over
// neutral ones, neutral over bad; unknown types are neutral.
func Classify(feedbackType string) Sentiment {
	lower := strings.ToLower(feedbackType)
	switch {
	case containsAny(lower, goodWords):
		return SentimentGood
	case containsAny(lower, neutralWords):
		return SentimentNeutral
	case containsAny(lower, badWords):
		return SentimentBad
	default:
		return SentimentNeutral
	}
}

type Feedback struct {
	ID          int64     `json:"id"`
	PartnerID   string    `json:"partner_id,omitempty"`
	PartnerName string    `json:"partner_name,omitempty"`
	Type        string    `json:"feedback_type,omitempty"`
	Message     string    `json:"feedback_message,omitempty"`
	Resolution  string    `json:"what_was_done,omitempty"`
	Sentiment   Sentiment `json:"sentiment"`
}

type FeedbackSummary struct {
	Total          int     `json:"total"`
	Good           int     `json:"good"`
	Neutral        int     `json:"neutral"`
	Bad            int     `json:"bad"`
	MostCommonType string  `json:"most_common_type,omitempty"`
	GoodPercent    float64 `json:"good_percent"`
}

type FeedbackReport struct {
	Partner  *Partner        `json:"partner,omitempty"`
	Feedback []Feedback      `json:"feedback"`
	Summary  FeedbackSummary `json:"summary"`
}

// FeedbackQuery selects a supplier by name or, when set, by partner ID.
type FeedbackQuery struct {
	PartnerName string
	PartnerID   string
}

// SupplierQuery narrows the supplier list by attributes of the partner directory.
type SupplierQuery struct {
	PartnerType string
	Country     string
	Region      string
}

// FeedbackFor returns the supplier's feedback ordered good, neutral, bad;
// insertion order is kept within each group.
func (d *Directory) FeedbackFor(ctx context.Context, q FeedbackQuery) (_ *FeedbackReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "directory.feedback_for")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("partner_name", q.PartnerName),
		attribute.String("partner_id", q.PartnerID),
	)

	column, value := "Partner Name", q.PartnerName
	if q.PartnerID != "" {
		column, value = "Partner ID", q.PartnerID
	}

	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT "id", "Partner ID", "Partner Name", "Feedback Type", "Feedback Message", "What was done?"
			FROM %s WHERE %s = ? ORDER BY "id"`, db.QuoteIdent(feedbackTable), db.QuoteIdent(column)),
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("select feedback: %w", err)
	}
	defer rows.Close()

	report := &FeedbackReport{Feedback: []Feedback{}}
	for rows.Next() {
		var (
			f                                        Feedback
			partnerID, partnerName, fType, msg, done nullText
		)
		if err := rows.Scan(&f.ID, &partnerID, &partnerName, &fType, &msg, &done); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.PartnerID = partnerID.get()
		f.PartnerName = partnerName.get()
		f.Type = fType.get()
		f.Message = msg.get()
		f.Resolution = done.get()
		f.Sentiment = Classify(f.Type)
		report.Feedback = append(report.Feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	slices.SortStableFunc(report.Feedback, func(a, b Feedback) int {
		return int(a.Sentiment) - int(b.Sentiment)
	})
	report.Summary = summarize(report.Feedback)

	if q.PartnerName != "" && q.PartnerID == "" {
		report.Partner, err = d.PartnerByName(ctx, q.PartnerName)
		if err != nil {
			return nil, err
		}
	}

	return report, nil
}

func summarize(feedback []Feedback) FeedbackSummary {
	summary := FeedbackSummary{Total: len(feedback)}
	typeCounts := map[string]int{}
	var typeOrder []string
	for _, f := range feedback {
		switch f.Sentiment {
		case SentimentGood:
			summary.Good++
		case SentimentBad:
			summary.Bad++
		default:
			summary.Neutral++
		}
		if f.Type == "" {
			continue
		}
		if typeCounts[f.Type] == 0 {
			typeOrder = append(typeOrder, f.Type)
		}
		typeCounts[f.Type]++
	}

	best := 0
	for _, t := range typeOrder {
		if typeCounts[t] > best {
			best = typeCounts[t]
			summary.MostCommonType = t
		}
	}
	if summary.Total > 0 {
		summary.GoodPercent = float64(summary.Good) / float64(summary.Total) * 100
	}
	return summary
}

// Suppliers lists the partner names that have feedback, sorted. Any filter
// restricts the list to names present in the matching partner rows.
func (d *Directory) Suppliers(ctx context.Context, q SupplierQuery) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "directory.suppliers")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := fmt.Sprintf(`SELECT DISTINCT f."Partner Name" FROM %s f WHERE f."Partner Name" IS NOT NULL`,
		db.QuoteIdent(feedbackTable))

	var (
		conds []string
		args  []any
	)
	for _, f := range []struct{ column, value string }{
		{"Partner Type", q.PartnerType},
		{"Country", q.Country},
		{"Region", q.Region},
	} {
		if f.value == "" {
			continue
		}
		conds = append(conds, fmt.Sprintf("p.%s = ?", db.QuoteIdent(f.column)))
		args = append(args, f.value)
	}
	if len(conds) > 0 {
		query += fmt.Sprintf(` AND f."Partner Name" IN (SELECT p."Partner Name" FROM %s p WHERE %s)`,
			db.QuoteIdent(partnersTable), strings.Join(conds, " AND "))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(suppliers)
	return suppliers, nil
}
