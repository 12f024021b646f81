package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartBookingConsumer connects to RabbitMQ, declares the
// booking.confirmed and ticket.issue_failed queues (durable), and
// starts consuming messages.  Confirmations are appended to
// logs/booking.log in a single-line, human-friendly format; issuance
// failures go to logs/operator.log.  The function runs a reconnect
// loop; it keeps running and logs any processing errors while
// rejecting the offending message so the server continues operating.
func StartBookingConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{bookingConfirmedQueue, ticketIssueFailedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	confirmed, err := ch.Consume(bookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	failed, err := ch.Consume(ticketIssueFailedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ackOrReject(d, handleConfirmed(d.Body))
		case d, ok := <-failed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ackOrReject(d, handleIssueFailed(d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		log.Printf("booking-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	seats := "[]"
	if len(ev.Seats) > 0 {
		seats = fmt.Sprintf("[%s]", strings.Join(ev.Seats, ","))
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking=%s | user_id=%d | showtime_id=%d | movie=%q | screen=%d | starts_at=%s | total=%d cents | txn=%s | seats=%s\n",
		ev.ConfirmedAt, ev.BookingRef, ev.UserID, ev.ShowtimeID, ev.MovieTitle, ev.ScreenNumber, ev.StartsAt, ev.TotalPriceCents, ev.TransactionRef, seats)
	return appendLine("booking.log", line)
}

func handleIssueFailed(body []byte) error {
	var ev TicketIssueFailedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] TICKET ISSUANCE FAILED | booking=%s (id=%d) | reason=%s | re-issue via POST /v1/admin/bookings/:id/ticket\n",
		ev.FailedAt, ev.BookingRef, ev.BookingID, ev.Reason)
	return appendLine("operator.log", line)
}

func appendLine(name, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", name)
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
