// Package convert turns accepted quotes into orders and invoices.
// Conversions are transactional: the new document is created and the
// source quote is marked converted atomically, or nothing happens.
package convert

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tally/internal/core/apperror"
	appctx "tally/internal/core/context"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/tx"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/invoice"
	"tally/internal/domain/documents/order"
	"tally/internal/domain/documents/quote"
	"tally/pkg/logger"
	"tally/pkg/numerator"
)

var tracer = otel.Tracer("tally/documents/convert")

// Converter performs quote conversions.
type Converter struct {
	quotes      quote.Repository
	orders      order.Repository
	invoices    invoice.Repository
	history     documents.HistoryRepository
	snapshotter *documents.Snapshotter
	numerator   numerator.Generator
	txManager   tx.Manager
}

// NewConverter creates a Converter.
func NewConverter(
	quotes quote.Repository,
	orders order.Repository,
	invoices invoice.Repository,
	history documents.HistoryRepository,
	snapshotter *documents.Snapshotter,
	gen numerator.Generator,
	txManager tx.Manager,
) *Converter {
	return &Converter{
		quotes:      quotes,
		orders:      orders,
		invoices:    invoices,
		history:     history,
		snapshotter: snapshotter,
		numerator:   gen,
		txManager:   txManager,
	}
}

// ToOrder converts an accepted quote into a pending order. Snapshot
// lines are copied verbatim, so order pricing honors the quoted prices.
func (c *Converter) ToOrder(ctx context.Context, quoteID id.ID) (*order.Order, error) {
	ctx, span := tracer.Start(ctx, "Converter.ToOrder",
		trace.WithAttributes(attribute.String("quote.id", quoteID.String())))
	defer span.End()

	var created *order.Order

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := c.lockConvertible(ctx, quoteID)
		if err != nil {
			return err
		}

		doc := order.New(src.ClientID, src.CurrencyID)
		quoteID := src.ID.String()
		doc.QuoteID = &quoteID
		doc.SetCreatedBy(appctx.GetUserID(ctx))

		lines := make([]documents.SnapshotLine, 0, len(src.Lines))
		for i, line := range src.Lines {
			copied := line.Clone()
			copied.LineNo = i + 1
			lines = append(lines, copied)
		}
		doc.SetLines(lines)

		number, err := c.numerator.GetNextNumber(ctx,
			numerator.DefaultConfig(order.NumberPrefix),
			&numerator.Options{Strategy: numerator.StrategyCached}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := doc.Validate(ctx); err != nil {
			return err
		}
		if err := c.orders.Create(ctx, doc); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := c.orders.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if err := c.markConverted(ctx, src, doc.ID, documents.TypeOrder, doc.Number); err != nil {
			return err
		}

		created = doc
		return nil
	})
	if err != nil {
		return nil, c.wrapConversionErr(ctx, err, quoteID)
	}

	logger.Info(ctx, "quote converted to order", "quote", quoteID, "order", created.ID)
	return created, nil
}

// ToInvoice converts an accepted quote into a draft invoice. Unlike the
// order path, lines are re-snapshotted from current product data, so the
// invoice reflects today's prices. Due date is 30 days out.
func (c *Converter) ToInvoice(ctx context.Context, quoteID id.ID) (*invoice.Invoice, error) {
	ctx, span := tracer.Start(ctx, "Converter.ToInvoice",
		trace.WithAttributes(attribute.String("quote.id", quoteID.String())))
	defer span.End()

	var created *invoice.Invoice

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := c.lockConvertible(ctx, quoteID)
		if err != nil {
			return err
		}

		inputs := make([]documents.LineInput, 0, len(src.Lines))
		for _, line := range src.Lines {
			inputs = append(inputs, documents.LineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}
		lines, err := c.snapshotter.BuildLines(ctx, inputs)
		if err != nil {
			return err
		}

		doc := invoice.New(src.ClientID, src.CurrencyID)
		quoteID := src.ID.String()
		doc.QuoteID = &quoteID
		doc.SetCreatedBy(appctx.GetUserID(ctx))
		doc.SetLines(lines)

		number, err := c.numerator.GetNextNumber(ctx,
			numerator.DefaultConfig(invoice.NumberPrefix),
			numerator.DefaultOptions(), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := doc.Validate(ctx); err != nil {
			return err
		}
		if err := c.invoices.Create(ctx, doc); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := c.invoices.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if err := c.markConverted(ctx, src, doc.ID, documents.TypeInvoice, doc.Number); err != nil {
			return err
		}

		created = doc
		return nil
	})
	if err != nil {
		return nil, c.wrapConversionErr(ctx, err, quoteID)
	}

	logger.Info(ctx, "quote converted to invoice", "quote", quoteID, "invoice", created.ID)
	return created, nil
}

// lockConvertible loads the quote with a row lock and checks the
// conversion gate.
func (c *Converter) lockConvertible(ctx context.Context, quoteID id.ID) (*quote.Quote, error) {
	src, err := c.quotes.GetForUpdate(ctx, quoteID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("quote", quoteID.String())
		}
		return nil, err
	}

	if !src.CanConvert() {
		return nil, apperror.NewInvalidTransition(documents.TypeQuote, src.Status, quote.StatusConverted)
	}

	lines, err := c.quotes.GetLines(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	src.Lines = lines
	return src, nil
}

// markConverted flips the quote to converted, records the target
// document, and appends the history row.
func (c *Converter) markConverted(ctx context.Context, src *quote.Quote, targetID id.ID, targetType, targetNumber string) error {
	from := src.Status
	src.Status = quote.StatusConverted
	target := targetID.String()
	src.ConvertedToID = &target
	src.ConvertedToType = &targetType
	src.SetUpdatedBy(appctx.GetUserID(ctx))

	if err := c.quotes.Update(ctx, src); err != nil {
		return fmt.Errorf("update quote: %w", err)
	}

	comment := fmt.Sprintf("converted to %s %s", targetType, targetNumber)
	row := entity.NewStatusHistory(src.ID, documents.TypeQuote, from, quote.StatusConverted, comment, appctx.GetUserID(ctx))
	if err := c.history.Append(ctx, row); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// wrapConversionErr keeps business errors intact but hides storage
// failures behind a generic conversion error; the cause is logged.
func (c *Converter) wrapConversionErr(ctx context.Context, err error, quoteID id.ID) error {
	if apperror.IsAppError(err) {
		return err
	}
	logger.Error(ctx, "conversion failed", "quote", quoteID, "error", err)
	return apperror.NewConversionFailed(documents.TypeQuote, err)
}
