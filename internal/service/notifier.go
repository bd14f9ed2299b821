package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rodavia/transport-settlements/internal/model"
)

// Sender delivers one email with the rendered settlement attached.
type Sender interface {
	Send(recipient, subject, body, attachmentName string, attachment []byte) error
}

type sendJob struct {
	doc       model.SettlementDocument
	recipient string
	actor     uuid.UUID
}

// Notifier is the asynchronous delivery queue for settlement emails.
// Delivery is at-least-once with bounded retries; a render or send failure
// is logged and never reaches back into the settlement state.
type Notifier struct {
	jobs    chan sendJob
	sender  Sender
	pdf     PDFGenerator
	store   SettlementStore
	log     zerolog.Logger
	retries int

	closeOnce sync.Once
	done      chan struct{}
}

func NewNotifier(sender Sender, pdf PDFGenerator, store SettlementStore, log zerolog.Logger, queueSize, retries int) *Notifier {
	if queueSize < 1 {
		queueSize = 64
	}
	if retries < 1 {
		retries = 3
	}
	return &Notifier{
		jobs:    make(chan sendJob, queueSize),
		sender:  sender,
		pdf:     pdf,
		store:   store,
		log:     log,
		retries: retries,
		done:    make(chan struct{}),
	}
}

func (n *Notifier) Start() {
	go n.run()
}

// Close stops accepting jobs and waits for the queue to drain.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.jobs) })
	<-n.done
}

func (n *Notifier) Enqueue(doc model.SettlementDocument, recipient string, actor uuid.UUID) error {
	select {
	case n.jobs <- sendJob{doc: doc, recipient: recipient, actor: actor}:
		return nil
	default:
		return fmt.Errorf("notification queue is full")
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for job := range n.jobs {
		n.deliver(job)
	}
}

func (n *Notifier) deliver(job sendJob) {
	settlement := job.doc.Settlement
	content, err := n.pdf.Generate(job.doc)
	if err != nil {
		n.log.Error().Err(err).Str("settlement", settlement.Number).Msg("render settlement pdf failed")
		return
	}

	subject := fmt.Sprintf("Preliquidación %s", settlement.Number)
	body := fmt.Sprintf(
		"Se adjunta la preliquidación %s del %s por un neto de %.2f.",
		settlement.Number, settlement.GeneratedAt.Format("02/01/2006"), settlement.TotalNet,
	)

	var lastErr error
	for attempt := 1; attempt <= n.retries; attempt++ {
		lastErr = n.sender.Send(job.recipient, subject, body, settlement.Number+".pdf", content)
		if lastErr == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if lastErr != nil {
		n.log.Error().Err(lastErr).
			Str("settlement", settlement.Number).
			Str("recipient", job.recipient).
			Msg("send settlement email failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	record := model.SendRecord{Recipient: job.recipient, SentBy: job.actor, SentAt: time.Now().UTC()}
	if err := n.store.AppendSendRecord(ctx, settlement.ID, record); err != nil {
		n.log.Error().Err(err).Str("settlement", settlement.Number).Msg("record settlement send failed")
	}
}
