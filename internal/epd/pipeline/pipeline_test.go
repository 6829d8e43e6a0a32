package pipeline_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epdparser/internal/epd"
	"epdparser/internal/epd/pipeline"
	"epdparser/internal/epd/profile"
)

func clock() time.Time {
	return time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
}

func newParser(t *testing.T) *pipeline.Parser {
	t.Helper()
	p, err := profile.Default()
	require.NoError(t, err)
	return pipeline.New(p, pipeline.WithClock(clock))
}

func twoServiceBill(total string) string {
	return strings.Join([]string{
		"ЕПД за июль 2025",
		"Лицевой счет: 123456789",
		"ФИО: Иванов Иван Иванович",
		"Услуга   Объем   Ед.   Тариф   Начислено   Итого",
		"Отопление   12.5   Гкал   850,00   ...   10625,00",
		"Вода   3   м3   45,20   ...   135,60",
		"Итого к оплате: " + total,
	}, "\n")
}

const fullDocument = `ЕДИНЫЙ ПЛАТЕЖНЫЙ ДОКУМЕНТ
Расчетный период: июль 2025
Лицевой счет: 1234 5678 90
ФИО: Иванов Иван Иванович
Адрес: г. Москва, ул. Ленина, д. 1, кв. 5
Оплатить до 10.08.2025
Виды услуг   Объем   Ед.изм.   Тариф   Начислено   Долг   Оплачено   Итого
Начисления за жилищные услуги
Содержание жилья   54,2   м2   30,50   1653,10   0,00   0,00   1653,10
Начисления за коммунальные услуги
Холодная вода   3   м3   45,20   135,60   0,00   0,00   135,60
ДОБРОВОЛЬНОЕ СТРАХОВАНИЕ   50,00
Итого к оплате без учета добровольного страхования: 1 788,70
Итого к оплате с учетом добровольного страхования: 1 838,70`

func TestParse_SingleAccountLine(t *testing.T) {
	doc := newParser(t).Parse(pipeline.Input{Text: "Лицевой счет: 123456789", SourceName: "a.txt"})

	require.NotNil(t, doc.AccountNumber)
	assert.Equal(t, "123456789", *doc.AccountNumber)
	assert.Equal(t, epd.ConfidenceExact, doc.FieldConfidence[epd.FieldAccountNumber])
	assert.Equal(t, epd.StatusPartial, doc.Status)
	assert.Equal(t, "a.txt", doc.SourceName)

	assert.Nil(t, doc.PayerName)
	assert.Nil(t, doc.Address)
	assert.Nil(t, doc.BillingPeriod)
	assert.Nil(t, doc.DueDate)
	assert.False(t, doc.TotalAmount.Valid)
	assert.False(t, doc.TotalWithInsurance.Valid)
	assert.Empty(t, doc.Services)
	assert.Empty(t, doc.Warnings)

	require.Len(t, doc.FieldConfidence, len(epd.ScalarFields))
	for _, f := range epd.ScalarFields {
		if f != epd.FieldAccountNumber {
			assert.Equal(t, epd.ConfidenceMissing, doc.FieldConfidence[f], f)
		}
	}
}

func TestParse_TotalsAgree(t *testing.T) {
	doc := newParser(t).Parse(pipeline.Input{Text: twoServiceBill("10760,60")})

	require.Len(t, doc.Services, 2)
	assert.Equal(t, "10760.60", doc.ServicesTotal().StringFixed(2))
	assert.Equal(t, "10760.60", doc.TotalAmount.Decimal.StringFixed(2))
	assert.Empty(t, doc.Warnings)
	assert.Equal(t, epd.StatusComplete, doc.Status)
	require.NotNil(t, doc.BillingPeriod)
	assert.Equal(t, epd.Period{Month: 7, Year: 2025}, *doc.BillingPeriod)
}

func TestParse_TotalMismatchWarns(t *testing.T) {
	doc := newParser(t).Parse(pipeline.Input{Text: twoServiceBill("10000,00")})

	require.Len(t, doc.Warnings, 1)
	w := doc.Warnings[0]
	assert.Equal(t, epd.WarningTotalMismatch, w.Kind)
	assert.Equal(t, "10000.00", w.Expected.Decimal.StringFixed(2))
	assert.Equal(t, "10760.60", w.Computed.Decimal.StringFixed(2))
	assert.Equal(t, epd.StatusComplete, doc.Status)
}

func TestParse_FullDocument(t *testing.T) {
	doc := newParser(t).Parse(pipeline.Input{Text: fullDocument})

	assert.Equal(t, epd.StatusComplete, doc.Status)
	assert.Equal(t, "Иванов Иван Иванович", *doc.PayerName)
	assert.Equal(t, "г. Москва, ул. Ленина, д. 1, кв. 5", *doc.Address)
	assert.Equal(t, "1234567890", *doc.AccountNumber)
	assert.Equal(t, epd.Period{Month: 7, Year: 2025}, *doc.BillingPeriod)
	assert.True(t, time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC).Equal(*doc.DueDate))
	assert.Equal(t, "1788.70", doc.TotalAmount.Decimal.StringFixed(2))
	assert.Equal(t, "1838.70", doc.TotalWithInsurance.Decimal.StringFixed(2))
	assert.Equal(t, "50.00", doc.InsuranceAmount().Decimal.StringFixed(2))

	require.Len(t, doc.Services, 2)
	assert.Equal(t, "Начисления за жилищные услуги", doc.Services[0].Category)
	assert.Equal(t, "Холодная вода", doc.Services[1].Name)
	assert.Empty(t, doc.Warnings)

	for _, f := range epd.ScalarFields {
		assert.NotEqual(t, epd.ConfidenceMissing, doc.FieldConfidence[f], f)
	}
}

func TestParse_WrappedAddressKeepsApartment(t *testing.T) {
	text := "Лицевой счет: 123456789\nАдрес: г. Москва, ул. Ленина, д. 5\nкв. 12"
	doc := newParser(t).Parse(pipeline.Input{Text: text})

	require.NotNil(t, doc.Address)
	assert.Equal(t, "г. Москва, ул. Ленина, д. 5 кв. 12", *doc.Address)
}

func TestParse_GracefulDegradation(t *testing.T) {
	inputs := map[string]string{
		"empty":      "",
		"whitespace": "  \n\t\n  ",
		"lorem":      "Lorem ipsum dolor sit amet.\nThe quick brown fox jumps over the lazy dog 12345.",
		"binary":     "\x00\x01\x02\xff\xfe",
	}
	p := newParser(t)
	for name, text := range inputs {
		t.Run(name, func(t *testing.T) {
			doc := p.Parse(pipeline.Input{Text: text, SourceName: name})

			assert.Equal(t, epd.StatusUnsupported, doc.Status)
			assert.Equal(t, name, doc.SourceName)
			assert.Nil(t, doc.PayerName)
			assert.Nil(t, doc.Address)
			assert.Nil(t, doc.AccountNumber)
			assert.Nil(t, doc.BillingPeriod)
			assert.Nil(t, doc.DueDate)
			assert.False(t, doc.TotalAmount.Valid)
			assert.False(t, doc.TotalWithInsurance.Valid)
			assert.Empty(t, doc.Services)
			assert.Empty(t, doc.Warnings)
			for _, f := range epd.ScalarFields {
				assert.Equal(t, epd.ConfidenceMissing, doc.FieldConfidence[f])
			}
		})
	}
}

func TestParse_MinLinesThreshold(t *testing.T) {
	p, err := profile.Default()
	require.NoError(t, err)
	p.MinLines = 3

	doc := pipeline.New(p).Parse(pipeline.Input{Text: "Лицевой счет: 123456789"})
	assert.Equal(t, epd.StatusUnsupported, doc.Status)
	assert.Nil(t, doc.AccountNumber)
}

func TestParse_Idempotent(t *testing.T) {
	p := newParser(t)
	in := pipeline.Input{Text: fullDocument, SourceName: "full.txt"}
	assert.Equal(t, p.Parse(in), p.Parse(in))
}

func TestParse_FixedMaxYearIgnoresClock(t *testing.T) {
	p, err := profile.Default()
	require.NoError(t, err)
	p.Validation.MaxYear = 2026

	in := pipeline.Input{Text: "Лицевой счет: 123456789\nРасчетный период: январь 2027"}
	before := pipeline.New(p, pipeline.WithClock(func() time.Time {
		return time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)
	})).Parse(in)
	after := pipeline.New(p, pipeline.WithClock(func() time.Time {
		return time.Date(2026, time.January, 1, 1, 0, 0, 0, time.UTC)
	})).Parse(in)

	assert.Equal(t, before, after)
	require.Len(t, before.Warnings, 1)
	assert.Equal(t, epd.WarningPeriodImplausible, before.Warnings[0].Kind)
}

func TestParse_OrderPreservation(t *testing.T) {
	doc := newParser(t).Parse(pipeline.Input{Text: fullDocument})
	for i, s := range doc.Services {
		assert.Equal(t, i, s.OrderIndex)
	}
}

func TestParse_Concurrent(t *testing.T) {
	p := newParser(t)
	inputs := []pipeline.Input{
		{Text: fullDocument},
		{Text: twoServiceBill("10760,60")},
		{Text: twoServiceBill("10000,00")},
		{Text: "Лицевой счет: 123456789"},
	}
	want := make([]epd.ParsedDocument, len(inputs))
	for i, in := range inputs {
		want[i] = p.Parse(in)
	}

	got := make([][]epd.ParsedDocument, 8)
	var wg sync.WaitGroup
	for g := range got {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, in := range inputs {
				got[g] = append(got[g], p.Parse(in))
			}
		}(g)
	}
	wg.Wait()

	for _, docs := range got {
		assert.Equal(t, want, docs)
	}
}

func TestParse_JSONShape(t *testing.T) {
	doc := newParser(t).Parse(pipeline.Input{Text: twoServiceBill("10000,00")})
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "complete", out["parse_status"])
	assert.Equal(t, "123456789", out["account_number"])
	assert.Len(t, out["services"], 2)
	assert.Len(t, out["warnings"], 1)
}

func TestRevalidate(t *testing.T) {
	p := newParser(t)

	t.Run("corrected_total_clears_mismatch", func(t *testing.T) {
		doc := p.Parse(pipeline.Input{Text: twoServiceBill("10000,00")})
		require.Len(t, doc.Warnings, 1)

		doc.TotalAmount.Decimal = doc.ServicesTotal()
		p.Revalidate(&doc)

		assert.Empty(t, doc.Warnings)
		assert.Equal(t, epd.StatusComplete, doc.Status)
	})

	t.Run("added_payer_completes_document", func(t *testing.T) {
		doc := p.Parse(pipeline.Input{Text: strings.Replace(twoServiceBill("10760,60"), "ФИО: Иванов Иван Иванович\n", "", 1)})
		require.Equal(t, epd.StatusPartial, doc.Status)

		name := "Петров Петр"
		doc.PayerName = &name
		doc.FieldConfidence[epd.FieldPayerName] = epd.ConfidenceExact
		p.Revalidate(&doc)

		assert.Equal(t, epd.StatusComplete, doc.Status)
	})

	t.Run("nothing_left_is_unsupported", func(t *testing.T) {
		doc := epd.ParsedDocument{FieldConfidence: map[epd.FieldName]epd.Confidence{}}
		p.Revalidate(&doc)

		assert.Equal(t, epd.StatusUnsupported, doc.Status)
		assert.NotNil(t, doc.Warnings)
		assert.Empty(t, doc.Warnings)
	})
}
