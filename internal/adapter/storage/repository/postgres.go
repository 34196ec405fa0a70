package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mbarulin/ordersvc/internal/adapter/storage"
	"github.com/mbarulin/ordersvc/internal/core/domain"
)

type Repository struct {
	db *storage.DB
}

func NewRepository(db *storage.DB) (*Repository, error) {
	return &Repository{db: db}, nil
}

var orderColumns = []string{
	"id", "status", "total_amount", "total_items",
	"paid", "paid_at", "coalesce(payment_charge_id, '')", "created_at",
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	order := domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.Status,
		&order.TotalAmount,
		&order.TotalItems,
		&order.Paid,
		&order.PaidAt,
		&order.PaymentChargeID,
		&order.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrDataNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (or *Repository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	err := pgx.BeginFunc(ctx, or.db, func(tx pgx.Tx) error {
		orderSt := or.db.QueryBuilder.
			Insert("orders").
			Columns("id", "status", "total_amount", "total_items", "created_at").
			Values(order.ID, order.Status, order.TotalAmount, order.TotalItems, order.CreatedAt)

		sql, args, err := orderSt.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}

		itemsSt := or.db.QueryBuilder.
			Insert("order_items").
			Columns("order_id", "product_id", "quantity", "price")
		for _, item := range order.Items {
			itemsSt = itemsSt.Values(order.ID, item.ProductID, item.Quantity, item.Price)
		}

		sql, args, err = itemsSt.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		return err
	})

	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.ErrConflictingData
		}
		return nil, err
	}

	return order, nil
}

func (or *Repository) ReadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	statement := or.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": orderID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(or.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, err
	}

	items, err := or.readOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	if order.Paid {
		receipt, err := or.readOrderReceipt(ctx, orderID)
		if err != nil {
			return nil, err
		}
		order.Receipt = receipt
	}

	return order, nil
}

func (or *Repository) readOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	statement := or.db.QueryBuilder.
		Select("product_id", "quantity", "price").
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := or.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		item := domain.OrderItem{}
		err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (or *Repository) readOrderReceipt(ctx context.Context, orderID string) (*domain.OrderReceipt, error) {
	statement := or.db.QueryBuilder.
		Select("order_id", "receipt_url", "created_at").
		From("order_receipts").
		Where(sq.Eq{"order_id": orderID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	receipt := domain.OrderReceipt{}
	err = or.db.QueryRow(ctx, sql, args...).Scan(
		&receipt.OrderID,
		&receipt.ReceiptURL,
		&receipt.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &receipt, nil
}

func (or *Repository) ListOrdersByStatus(ctx context.Context,
	status domain.OrderStatus, offset, limit int) ([]*domain.Order, error) {
	statement := or.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"status": status}).
		OrderBy("created_at", "id").
		Offset(uint64(offset)).
		Limit(uint64(limit))

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := or.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, order)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (or *Repository) CountOrdersByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	statement := or.db.QueryBuilder.
		Select("count(*)").
		From("orders").
		Where(sq.Eq{"status": status})

	sql, args, err := statement.ToSql()
	if err != nil {
		return 0, err
	}

	var total int64
	err = or.db.QueryRow(ctx, sql, args...).Scan(&total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (or *Repository) UpdateOrderStatus(ctx context.Context,
	orderID string, current, next domain.OrderStatus) (*domain.Order, error) {
	statement := or.db.QueryBuilder.
		Update("orders").
		Set("status", next).
		Where(sq.Eq{"id": orderID, "status": current}).
		Suffix("RETURNING " + returningColumns)

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(or.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return order, nil
	}
	if err != domain.ErrDataNotFound {
		return nil, err
	}

	// zero rows: either the order is gone or its status moved under us
	_, err = or.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nil, domain.ErrConflictingData
}

const returningColumns = "id, status, total_amount, total_items, " +
	"paid, paid_at, coalesce(payment_charge_id, ''), created_at"

func (or *Repository) MarkOrderPaid(ctx context.Context,
	orderID, chargeID, receiptURL string, paidAt time.Time) (*domain.Order, error) {
	err := pgx.BeginFunc(ctx, or.db, func(tx pgx.Tx) error {
		// lock the row so racing confirmations serialize here
		lockSt := or.db.QueryBuilder.
			Select("status", "coalesce(payment_charge_id, '')").
			From("orders").
			Where(sq.Eq{"id": orderID}).
			Suffix("FOR UPDATE")

		sql, args, err := lockSt.ToSql()
		if err != nil {
			return err
		}

		var status domain.OrderStatus
		var recordedCharge string
		err = tx.QueryRow(ctx, sql, args...).Scan(&status, &recordedCharge)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrDataNotFound
			}
			return err
		}

		if status == domain.OrderStatusPaid {
			if recordedCharge == chargeID {
				// redelivery, nothing to apply
				return nil
			}
			return domain.ErrPaymentChargeMismatch
		}

		updateSt := or.db.QueryBuilder.
			Update("orders").
			Set("status", domain.OrderStatusPaid).
			Set("paid", true).
			Set("paid_at", paidAt).
			Set("payment_charge_id", chargeID).
			Where(sq.Eq{"id": orderID})

		sql, args, err = updateSt.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}

		receiptSt := or.db.QueryBuilder.
			Insert("order_receipts").
			Columns("order_id", "receipt_url", "created_at").
			Values(orderID, receiptURL, paidAt)

		sql, args, err = receiptSt.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		return err
	})

	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.ErrConflictingData
		}
		return nil, err
	}

	return or.ReadOrder(ctx, orderID)
}
