package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Product struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Brand     string             `json:"brand"`
	Category  string             `json:"category"`
	Image     string             `json:"image"`
	Price     pgtype.Numeric     `json:"price"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

const findProducts = `-- name: FindProducts :many
SELECT id, name, brand, category, image, price, created_at, updated_at
FROM products
ORDER BY created_at, name
`

func (q *Queries) FindProducts(c context.Context) ([]Product, error) {
	rows, err := q.db.Query(c, findProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Brand,
			&i.Category,
			&i.Image,
			&i.Price,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findProductById = `-- name: FindProductById :one
SELECT id, name, brand, category, image, price, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(c, findProductById, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Brand,
		&i.Category,
		&i.Image,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertProduct = `-- name: InsertProduct :one
INSERT INTO products (id, name, brand, category, image, price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, brand, category, image, price, created_at, updated_at
`

type InsertProductParams struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Brand    string         `json:"brand"`
	Category string         `json:"category"`
	Image    string         `json:"image"`
	Price    pgtype.Numeric `json:"price"`
}

func (q *Queries) InsertProduct(c context.Context, arg InsertProductParams) (Product, error) {
	row := q.db.QueryRow(c, insertProduct,
		arg.ID,
		arg.Name,
		arg.Brand,
		arg.Category,
		arg.Image,
		arg.Price,
	)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Brand,
		&i.Category,
		&i.Image,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteProduct = `-- name: DeleteProduct :execrows
DELETE FROM products
WHERE id = $1
`

func (q *Queries) DeleteProduct(c context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(c, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
