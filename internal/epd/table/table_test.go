package table_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epdparser/internal/epd/profile"
	"epdparser/internal/epd/table"
)

func newParser(t *testing.T) *table.Parser {
	t.Helper()
	p, err := profile.Default()
	require.NoError(t, err)
	return table.New(p, nil)
}

func TestParse_BasicRows(t *testing.T) {
	lines := []string{
		"ЕПД за июль 2025",
		"Услуга   Объем   Ед.   Тариф   Начислено   Итого",
		"Отопление   12.5   Гкал   850,00   ...   10625,00",
		"Вода   3   м3   45,20   ...   135,60",
		"Итого к оплате: 10760,60",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)

	heat := res.Services[0]
	assert.Equal(t, 0, heat.OrderIndex)
	assert.Equal(t, "Отопление", heat.Name)
	assert.Equal(t, "12.5", heat.Volume.Decimal.String())
	require.NotNil(t, heat.Unit)
	assert.Equal(t, "Гкал", *heat.Unit)
	assert.Equal(t, "850", heat.Tariff.Decimal.String())
	assert.False(t, heat.Charged.Valid)
	assert.Equal(t, "10625.00", heat.Total.StringFixed(2))

	water := res.Services[1]
	assert.Equal(t, 1, water.OrderIndex)
	assert.Equal(t, "Вода", water.Name)
	assert.Equal(t, "135.60", water.Total.StringFixed(2))
	assert.Equal(t, "10760.60", heat.Total.Add(water.Total).StringFixed(2))
}

func TestParse_NoHeader(t *testing.T) {
	res, err := newParser(t).Parse([]string{
		"Лицевой счет: 123456789",
		"Отопление   12.5   Гкал   850,00   ...   10625,00",
	})
	require.Error(t, err)

	var tsErr *table.TableStructureError
	assert.True(t, errors.As(err, &tsErr))
	assert.Equal(t, 2, tsErr.Lines)
	assert.Empty(t, res.Services)
}

func TestParse_ColumnCountLayouts(t *testing.T) {
	lines := []string{
		"Виды услуг   Объем   Ед.изм.   Тариф   Начислено   Перерасчеты   Долг   Оплачено   Итого к оплате",
		"Содержание жилья   54,2   м2   30,50   1653,10   -   0,00   1653,10   1653,10",
		"Электроэнергия   120   кВт·ч   6,17   740,40   100,00   740,40   100,00",
		"Вывоз ТКО   1   чел   250,00   250,00   250,00   0,00",
		"Домофон   50,00   50,00",
		"Антенна   80,00",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 5)

	housing := res.Services[0]
	assert.Equal(t, "Содержание жилья", housing.Name)
	assert.False(t, housing.Recalculation.Valid)
	assert.Equal(t, "0", housing.Debt.Decimal.String())
	assert.Equal(t, "1653.1", housing.Paid.Decimal.String())

	power := res.Services[1]
	assert.Equal(t, "740.4", power.Charged.Decimal.String())
	assert.Equal(t, "100", power.Debt.Decimal.String())
	assert.Equal(t, "740.4", power.Paid.Decimal.String())
	assert.Equal(t, "100.00", power.Total.StringFixed(2))

	waste := res.Services[2]
	assert.True(t, waste.Paid.Valid)
	assert.False(t, waste.Debt.Valid)

	intercom := res.Services[3]
	assert.Equal(t, "50", intercom.Charged.Decimal.String())
	assert.Nil(t, intercom.Unit)

	antenna := res.Services[4]
	assert.Equal(t, "80.00", antenna.Total.StringFixed(2))
	for i, s := range res.Services {
		assert.Equal(t, i, s.OrderIndex)
	}
}

func TestParse_RowAdmission(t *testing.T) {
	lines := []string{
		"Наименование   Тариф   Сумма",
		"руб.   руб.",
		"1   2   3",
		"Отопление   850,00   не начислено",
		"Вода   45,20   135,60",
		"   ",
		"Газ   7,00   70,00",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)
	assert.Equal(t, "Вода", res.Services[0].Name)
	assert.Equal(t, 0, res.Services[0].OrderIndex)
	assert.Equal(t, "Газ", res.Services[1].Name)
	assert.Equal(t, 1, res.Services[1].OrderIndex)
	assert.Equal(t, 2, res.Skipped)
}

func TestParse_RegionEndsAtNonRow(t *testing.T) {
	lines := []string{
		"Услуга   Тариф   Сумма",
		"Вода   45,20   135,60",
		"Информация для плательщика",
		"Газ   7,00   70,00",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "Вода", res.Services[0].Name)
}

func TestParse_StopAndSkipKeywords(t *testing.T) {
	lines := []string{
		"Услуга   Тариф   Сумма",
		"Вода   45,20   135,60",
		"ДОБРОВОЛЬНОЕ СТРАХОВАНИЕ   50,00",
		"Газ   7,00   70,00",
		"ИТОГО   205,60",
		"Свет   5,00   50,00",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)
	assert.Equal(t, "Газ", res.Services[1].Name)
}

func TestParse_Categories(t *testing.T) {
	lines := []string{
		"Виды услуг   Тариф   Начислено   Итого",
		"Начисления за жилищные услуги",
		"Содержание жилья   30,50   1653,10   1653,10",
		"Начисления за коммунальные услуги",
		"Холодная вода   45,20   135,60   135,60",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)
	assert.Equal(t, "Начисления за жилищные услуги", res.Services[0].Category)
	assert.Equal(t, "Начисления за коммунальные услуги", res.Services[1].Category)
}

func TestParse_MultiPageContinuesIndexes(t *testing.T) {
	lines := []string{
		"Услуга   Тариф   Сумма",
		"Вода   45,20   135,60",
		"Страница 1 из 2",
		"Услуга   Тариф   Сумма",
		"Газ   7,00   70,00",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)
	assert.Equal(t, 1, res.Services[1].OrderIndex)
}

func TestParse_Recalculations(t *testing.T) {
	lines := []string{
		"Услуга   Тариф   Сумма",
		"Вода   45,20   135,60",
		"Перерасчеты   Основание   Сумма",
		"Отопление   Недопоставка июнь 2025   -150,00",
		"Вода   200,00",
		"Итого перерасчетов   50,00",
	}
	res, err := newParser(t).Parse(lines)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	require.Len(t, res.Recalculations, 2)

	assert.Equal(t, "Отопление", res.Recalculations[0].ServiceName)
	assert.Equal(t, "Недопоставка июнь 2025", res.Recalculations[0].Reason)
	assert.Equal(t, "-150.00", res.Recalculations[0].Amount.StringFixed(2))
	assert.Equal(t, 1, res.Recalculations[1].OrderIndex)
	assert.Empty(t, res.Recalculations[1].Reason)
}

func TestParse_AdversarialSpacing(t *testing.T) {
	t.Run("explicit_delimiter", func(t *testing.T) {
		lines := []string{
			"| Услуга | Тариф | Сумма |",
			"| Вода | 45,20 | 135,60 |",
			"| Газ | - | 70,00 |",
		}
		res, err := newParser(t).Parse(lines)
		require.NoError(t, err)
		require.Len(t, res.Services, 2)
		assert.False(t, res.Services[1].Charged.Valid)
	})

	t.Run("name_with_wide_spacing", func(t *testing.T) {
		lines := []string{
			"Услуга   Объем   Ед.   Тариф   Начислено   Перерасчет   Долг   Оплачено   Итого",
			"Горячее   водоснабжение   2   м3   200,00   400,00   0,00   0,00   400,00   400,00",
		}
		res, err := newParser(t).Parse(lines)
		require.NoError(t, err)
		require.Len(t, res.Services, 1)
		assert.Equal(t, "Горячее водоснабжение", res.Services[0].Name)
	})

	t.Run("single_spaced_row_ends_region", func(t *testing.T) {
		lines := []string{
			"Услуга   Тариф   Сумма",
			"Вода   45,20   135,60",
			"Газ 7,00 70,00",
			"Свет   5,00   50,00",
		}
		res, err := newParser(t).Parse(lines)
		require.NoError(t, err)
		require.Len(t, res.Services, 1)
	})

	t.Run("ragged_gaps", func(t *testing.T) {
		lines := []string{
			"Услуга  Тариф      Сумма",
			"Вода        45,20  135,60",
			"Газ  7,00                 70,00",
		}
		res, err := newParser(t).Parse(lines)
		require.NoError(t, err)
		require.Len(t, res.Services, 2)
	})
}
