// Package worker processes queued boleto dispatch requests: it pulls the
// boleto and its client, downloads the printable document from the
// invoice provider and delivers both a text notice and the PDF over
// WhatsApp.
package worker

import (
	"context"
	"errors"
	"fmt"

	"gestor/internal/amqp"
	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/storage"
)

// InvoiceDownloader is the slice of the provider client the worker needs.
type InvoiceDownloader interface {
	DownloadPDF(ctx context.Context, invoiceID string) ([]byte, error)
}

// Messenger is the slice of the WhatsApp client the worker needs.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) error
	SendDocument(ctx context.Context, phone, filename string, document []byte, caption string) error
}

type Dispatcher struct {
	store     storage.Store
	provider  InvoiceDownloader
	messenger Messenger
	logger    *log.Logger
}

func NewDispatcher(store storage.Store, provider InvoiceDownloader, messenger Messenger, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		provider:  provider,
		messenger: messenger,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Handle processes one dispatch message. Every failure marks the boleto
// send-failed and acks the message; a nack-requeue here would hammer the
// provider and the gateway with the same broken dispatch. The boleto
// stays visible as failed and can be re-dispatched explicitly.
func (d *Dispatcher) Handle(ctx context.Context, msg *amqp.BoletoDispatchMessage) error {
	boleto, err := d.store.GetBoleto(ctx, msg.BoletoID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			d.logger.Warn("dispatch for unknown boleto dropped", log.FieldBoletoID, msg.BoletoID)
			return nil
		}
		return fmt.Errorf("load boleto %s: %w", msg.BoletoID, err)
	}

	client, err := d.store.GetClient(ctx, boleto.ClientID)
	if err != nil {
		d.markFailed(ctx, boleto.ID)
		if errors.Is(err, core.ErrNotFound) {
			d.logger.Warn("boleto client missing, dispatch dropped",
				log.FieldBoletoID, boleto.ID, log.FieldClientID, boleto.ClientID)
			return nil
		}
		return fmt.Errorf("load client %s: %w", boleto.ClientID, err)
	}
	if client.Phone == "" {
		d.markFailed(ctx, boleto.ID)
		d.logger.Warn("client has no phone, dispatch dropped",
			log.FieldBoletoID, boleto.ID, log.FieldClientID, client.ID)
		return nil
	}

	pdf, err := d.provider.DownloadPDF(ctx, boleto.ProviderInvoiceID)
	if err != nil {
		d.markFailed(ctx, boleto.ID)
		d.logger.Error("provider download failed",
			log.FieldBoletoID, boleto.ID, log.FieldError, err)
		return nil
	}

	text := dispatchText(client, boleto)
	if err := d.messenger.SendText(ctx, client.Phone, text); err != nil {
		d.markFailed(ctx, boleto.ID)
		d.logger.Error("text send failed",
			log.FieldBoletoID, boleto.ID, log.FieldError, err)
		return nil
	}
	filename := fmt.Sprintf("boleto-%s.pdf", boleto.Competencia)
	if err := d.messenger.SendDocument(ctx, client.Phone, filename, pdf, "Segue o boleto em anexo."); err != nil {
		d.markFailed(ctx, boleto.ID)
		d.logger.Error("document send failed",
			log.FieldBoletoID, boleto.ID, log.FieldError, err)
		return nil
	}

	if err := d.store.UpdateBoletoDispatch(ctx, boleto.ID, core.DispatchSent); err != nil {
		return fmt.Errorf("mark boleto %s sent: %w", boleto.ID, err)
	}
	d.logger.Info("boleto dispatched",
		log.FieldBoletoID, boleto.ID,
		log.FieldClientID, client.ID,
		log.FieldAmountCents, boleto.Amount.Cents)
	return nil
}

func (d *Dispatcher) markFailed(ctx context.Context, boletoID string) {
	if err := d.store.UpdateBoletoDispatch(ctx, boletoID, core.DispatchFailed); err != nil {
		d.logger.Error("failed to mark boleto dispatch failed",
			log.FieldBoletoID, boletoID, log.FieldError, err)
	}
}

func dispatchText(client core.Client, boleto core.Boleto) string {
	return fmt.Sprintf(
		"Olá, %s! O boleto da competência %s no valor de R$ %s vence em %s.",
		client.Name,
		boleto.Competencia,
		boleto.Amount.String(),
		boleto.DueDate.Format("02/01/2006"),
	)
}
