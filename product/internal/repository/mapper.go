package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/product/pkg/response"
)

func (p Product) Response() response.Product {
	return response.Product{
		ID:       p.ID.String(),
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Image:    p.Image,
		Price:    NumericToDecimal(p.Price),
	}
}

func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              d.Coefficient(),
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
