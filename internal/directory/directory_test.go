package directory

import (
	"context"
	"database/sql"
	"testing"

	"github.com/2beens/partnerdesk/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, db.OpenParams{Path: db.InMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(ctx, sqlDB))
	seed(t, sqlDB)
	return New(sqlDB)
}

func seed(t *testing.T, sqlDB *sql.DB) {
	t.Helper()
	statements := []string{
		`INSERT INTO "Main Travel Database" ("Partner ID", "Partner Name", "Country", "Location", "Region", "Status", "Partner Type", "Description")
		VALUES
			('P-1', 'Blue Lagoon Tours', 'Iceland', 'Reykjavik', 'North', 'Active', 'DMC', 'Geothermal day trips'),
			('P-2', 'Atlas Transfers', 'Morocco', 'Marrakech', 'Africa', 'Active', 'Transport', 'Airport pickups'),
			('P-3', 'Fjord Cruises', 'Norway', 'Bergen', 'North', 'Inactive', 'DMC', 'Boat tours near reykjavik fans'),
			('P-4', 'Sahara Camps', 'Morocco', NULL, 'Africa', 'Active', 'Hotel', NULL)`,
		`INSERT INTO "Feedback Database" ("Partner ID", "Partner Name", "Feedback Type", "Feedback Message", "What was done?")
		VALUES
			('P-1', 'Blue Lagoon Tours', 'Complaint', 'Bus was late', 'Refund issued'),
			('P-1', 'Blue Lagoon Tours', 'Positive', 'Great guide', NULL),
			('P-1', 'Blue Lagoon Tours', 'General', 'Nice', NULL),
			('P-1', 'Blue Lagoon Tours', 'Positive', 'Loved it', NULL),
			('P-2', 'Atlas Transfers', 'Suggestion', 'More seats', NULL),
			('P-3', 'Fjord Cruises', 'Bad', 'Cold', NULL),
			(NULL, NULL, 'Positive', 'orphan', NULL)`,
		`INSERT INTO "Service Database" ("Partner ID", "Partner Name", "Service", "Service Type", "Price", "Notes")
		VALUES
			(' P-1 ', 'Blue Lagoon Tours', 'Lagoon entry', 'Ticket', '90', NULL),
			('P-9', ' Sahara Camps ', 'Desert night', 'Lodging', '200', NULL),
			(NULL, 'Atlas Transfers', 'Airport run', 'Transfer', '40', NULL),
			('P-1', 'Blue Lagoon Tours', 'Northern lights', 'Tour', '120', NULL),
			('P-5', '  ', 'Ghost service', NULL, NULL, NULL)`,
	}
	for _, stmt := range statements {
		_, err := sqlDB.Exec(stmt)
		require.NoError(t, err)
	}
}

func partnerNames(partners []Partner) []string {
	names := make([]string, len(partners))
	for i, p := range partners {
		names[i] = p.Name
	}
	return names
}

func TestDirectory_SearchPartners(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	all, err := d.SearchPartners(ctx, PartnerQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Lagoon Tours", "Atlas Transfers", "Fjord Cruises", "Sahara Camps"}, partnerNames(all))
	assert.Equal(t, "Geothermal day trips", all[0].Description)
	assert.Empty(t, all[3].Location)

	morocco, err := d.SearchPartners(ctx, PartnerQuery{Country: "Morocco", Status: "Active"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Atlas Transfers", "Sahara Camps"}, partnerNames(morocco))

	// keyword hits name, description and location, case-insensitively
	reykjavik, err := d.SearchPartners(ctx, PartnerQuery{Keyword: "REYKJAVIK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Lagoon Tours", "Fjord Cruises"}, partnerNames(reykjavik))

	none, err := d.SearchPartners(ctx, PartnerQuery{Country: "Peru"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDirectory_Options(t *testing.T) {
	d := newTestDirectory(t)

	opts, err := d.Options(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Iceland", "Morocco", "Norway"}, opts.Countries)
	assert.Equal(t, []string{"Bergen", "Marrakech", "Reykjavik"}, opts.Locations)
	assert.Equal(t, []string{"Africa", "North"}, opts.Regions)
	assert.Equal(t, []string{"Active", "Inactive"}, opts.Statuses)
	assert.Equal(t, []string{"DMC", "Hotel", "Transport"}, opts.PartnerTypes)

	opts, err = d.Options(context.Background(), "Morocco")
	require.NoError(t, err)
	assert.Equal(t, []string{"Marrakech"}, opts.Locations)
	assert.Equal(t, []string{"Africa"}, opts.Regions)
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		feedbackType string
		expected     Sentiment
	}{
		{"Positive", SentimentGood},
		{"EXCELLENT service", SentimentGood},
		{"Outstanding", SentimentGood},
		{"Complaint", SentimentBad},
		{"poor", SentimentBad},
		{"Issue", SentimentBad},
		{"Negative", SentimentBad},
		{"Suggestion", SentimentNeutral},
		{"general", SentimentNeutral},
		{"", SentimentNeutral},
		{"something else", SentimentNeutral},
		// good words win over bad, neutral words over bad
		{"good but issue", SentimentGood},
		{"improvement issue", SentimentNeutral},
	}
	for _, tc := range testCases {
		t.Run(tc.feedbackType, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.feedbackType))
		})
	}
	assert.Equal(t, "good", SentimentGood.String())
	assert.Equal(t, "neutral", SentimentNeutral.String())
	assert.Equal(t, "bad", SentimentBad.String())
}

func TestDirectory_FeedbackFor(t *testing.T) {
	d := newTestDirectory(t)

	report, err := d.FeedbackFor(context.Background(), FeedbackQuery{PartnerName: "Blue Lagoon Tours"})
	require.NoError(t, err)
	require.Len(t, report.Feedback, 4)

	var messages []string
	for _, f := range report.Feedback {
		messages = append(messages, f.Message)
	}
	assert.Equal(t, []string{"Great guide", "Loved it", "Nice", "Bus was late"}, messages)
	assert.Equal(t, "Refund issued", report.Feedback[3].Resolution)

	assert.Equal(t, FeedbackSummary{
		Total:          4,
		Good:           2,
		Neutral:        1,
		Bad:            1,
		MostCommonType: "Positive",
		GoodPercent:    50,
	}, report.Summary)
	require.NotNil(t, report.Partner)
	assert.Equal(t, "P-1", report.Partner.ID)

	byID, err := d.FeedbackFor(context.Background(), FeedbackQuery{PartnerID: "P-3"})
	require.NoError(t, err)
	require.Len(t, byID.Feedback, 1)
	assert.Equal(t, SentimentBad, byID.Feedback[0].Sentiment)
	assert.Nil(t, byID.Partner)

	empty, err := d.FeedbackFor(context.Background(), FeedbackQuery{PartnerName: "Nobody"})
	require.NoError(t, err)
	assert.Empty(t, empty.Feedback)
	assert.Equal(t, FeedbackSummary{}, empty.Summary)
	assert.Nil(t, empty.Partner)
}

func TestDirectory_Suppliers(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	all, err := d.Suppliers(ctx, SupplierQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Atlas Transfers", "Blue Lagoon Tours", "Fjord Cruises"}, all)

	north, err := d.Suppliers(ctx, SupplierQuery{Region: "North"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Lagoon Tours", "Fjord Cruises"}, north)

	dmcIceland, err := d.Suppliers(ctx, SupplierQuery{PartnerType: "DMC", Country: "Iceland"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Lagoon Tours"}, dmcIceland)

	hotels, err := d.Suppliers(ctx, SupplierQuery{PartnerType: "Hotel"})
	require.NoError(t, err)
	assert.Empty(t, hotels)
}

func TestDirectory_Services(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	groups, err := d.Services(ctx, ServiceQuery{})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// no partner ID: grouped by name, enriched by name
	assert.Equal(t, "", groups[0].PartnerID)
	assert.Equal(t, "Atlas Transfers", groups[0].PartnerName)
	assert.Equal(t, "Marrakech", groups[0].Location)

	// trimmed ID join, both rows in one group
	assert.Equal(t, "P-1", groups[1].PartnerID)
	assert.Equal(t, "Iceland", groups[1].Country)
	require.Len(t, groups[1].Services, 2)
	assert.Equal(t, "Lagoon entry", groups[1].Services[0].Service)

	// unknown ID falls back to the trimmed name
	assert.Equal(t, "P-9", groups[2].PartnerID)
	assert.Equal(t, "Sahara Camps", groups[2].PartnerName)
	assert.Equal(t, "Morocco", groups[2].Country)
	assert.Empty(t, groups[2].Location)

	morocco, err := d.Services(ctx, ServiceQuery{Country: "Morocco"})
	require.NoError(t, err)
	assert.Len(t, morocco, 2)

	marrakech, err := d.Services(ctx, ServiceQuery{Country: "Morocco", Location: "Marrakech"})
	require.NoError(t, err)
	require.Len(t, marrakech, 1)
	assert.Equal(t, "Atlas Transfers", marrakech[0].PartnerName)

	lagoon, err := d.Services(ctx, ServiceQuery{Keyword: "lagoon"})
	require.NoError(t, err)
	require.Len(t, lagoon, 1)

	countries, locations, err := d.ServiceOptions(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Iceland", "Morocco"}, countries)
	assert.Equal(t, []string{"Marrakech", "Reykjavik"}, locations)

	_, locations, err = d.ServiceOptions(ctx, "Iceland")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reykjavik"}, locations)
}
