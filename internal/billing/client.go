package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const CreateBillingAccountMethod = "/BillingService/CreateBillingAccount"

// Client calls the billing service. It satisfies service.BillingNotifier.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
	log     zerolog.Logger
}

// Dial connects lazily to the billing service at addr (e.g. "localhost:9001").
// A zero timeout leaves the caller's deadline untouched.
func Dial(addr string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("billing dial: %w", err)
	}
	c := NewClient(conn, timeout, log)
	c.closer = conn.Close
	return c, nil
}

// NewClient wraps an existing connection; the caller keeps ownership of it.
func NewClient(conn grpc.ClientConnInterface, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		conn:    conn,
		closer:  func() error { return nil },
		timeout: timeout,
		log:     log.With().Str("component", "billing-client").Logger(),
	}
}

func (c *Client) Close() error { return c.closer() }

// Call performs the raw CreateBillingAccount RPC.
func (c *Client) Call(ctx context.Context, req *BillingRequest) (*BillingResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp := &BillingResponse{}
	if err := c.conn.Invoke(ctx, CreateBillingAccountMethod, req, resp, grpc.ForceCodec(Codec{})); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateBillingAccount registers a billing account for a new patient. The
// response is only logged.
func (c *Client) CreateBillingAccount(ctx context.Context, patientID, name, email string) error {
	resp, err := c.Call(ctx, &BillingRequest{PatientID: patientID, Name: name, Email: email})
	if err != nil {
		return fmt.Errorf("create billing account for patient %s: %w", patientID, err)
	}

	c.log.Info().
		Str("patient_id", patientID).
		Str("account_id", resp.AccountID).
		Str("status", resp.Status).
		Msg("billing account created")
	return nil
}
