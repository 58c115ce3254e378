package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/churn-service/internal/domain/model"
	pkgpostgres "github.com/bibbank/churn-service/pkg/postgres"
)

// DefaultCustomerTable is the table created by the bundled migrations.
const DefaultCustomerTable = "customers"

var customerColumns = []string{
	"customer_id", "age", "balance", "transactions", "credit_score", "tenure",
	"income", "num_products", "has_credit_card", "is_active_member", "churn",
}

// CustomerRepository reads training customers from PostgreSQL. It implements
// port.CustomerSource.
type CustomerRepository struct {
	db     pkgpostgres.Querier
	logger *slog.Logger
	table  pgx.Identifier
}

// NewCustomerRepository creates a repository over table; an empty name uses
// DefaultCustomerTable.
func NewCustomerRepository(db pkgpostgres.Querier, table string, logger *slog.Logger) *CustomerRepository {
	if table == "" {
		table = DefaultCustomerTable
	}
	return &CustomerRepository{db: db, table: pgx.Identifier{table}, logger: logger}
}

// LoadCustomers reads every customer, ordered by identifier so runs over the
// same data split identically.
func (r *CustomerRepository) LoadCustomers(ctx context.Context) (*model.Frame, error) {
	query := fmt.Sprintf(`
		SELECT customer_id, age, balance, transactions, credit_score, tenure,
		       income, num_products, has_credit_card, is_active_member, churn
		FROM %s
		ORDER BY customer_id`, r.table.Sanitize())

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var records []model.CustomerRecord
	for rows.Next() {
		var c model.CustomerRecord
		if err := rows.Scan(
			&c.CustomerID,
			&c.Age,
			&c.Balance,
			&c.Transactions,
			&c.CreditScore,
			&c.Tenure,
			&c.Income,
			&c.NumProducts,
			&c.HasCreditCard,
			&c.IsActiveMember,
			&c.Churn,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		records = append(records, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	r.logger.InfoContext(ctx, "customer data loaded",
		slog.String("table", r.table.Sanitize()),
		slog.Int("rows", len(records)),
	)
	return model.CustomerFrame(records, true), nil
}

// SeedCustomers replaces the contents of table with records in a single
// transaction using COPY.
func SeedCustomers(ctx context.Context, db pkgpostgres.TxBeginner, table string, records []model.CustomerRecord) (int64, error) {
	if table == "" {
		table = DefaultCustomerTable
	}
	ident := pgx.Identifier{table}

	var copied int64
	err := pkgpostgres.WithTransaction(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM "+ident.Sanitize()); err != nil {
			return fmt.Errorf("failed to clear customers: %w", err)
		}
		n, err := tx.CopyFrom(ctx, ident, customerColumns, pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			c := records[i]
			return []any{
				c.CustomerID, c.Age, c.Balance, c.Transactions, c.CreditScore, c.Tenure,
				c.Income, c.NumProducts, c.HasCreditCard, c.IsActiveMember, c.Churn,
			}, nil
		}))
		if err != nil {
			return fmt.Errorf("failed to copy customers: %w", err)
		}
		copied = n
		return nil
	})
	return copied, err
}
