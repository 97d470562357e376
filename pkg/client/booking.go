package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reservo/pkg/model"
	"strconv"
	"time"
)

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

type ListOptions struct {
	UserID     string
	ResourceID string
	Status     model.BookingStatus
	Upcoming   bool
	Limit      int
	Offset     int64
}

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string, opts ...HttpOption) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL, opts...),
	}
}

// Create submits a booking request. A non-empty idempotencyKey makes retries
// of the same request return the first response.
func (c *BookingClient) Create(ctx context.Context, req model.BookingRequest, idempotencyKey string) (*model.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	resp, err := c.httpClient.Do(ctx, http.MethodPost, "/api/v1/bookings", req, headers)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, bookingPath(id))
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) List(ctx context.Context, opts ListOptions) ([]model.Booking, *Metadata, error) {
	q := url.Values{}
	if opts.UserID != "" {
		q.Set("user_id", opts.UserID)
	}
	if opts.ResourceID != "" {
		q.Set("resource_id", opts.ResourceID)
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Upcoming {
		q.Set("upcoming", "true")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.FormatInt(opts.Offset, 10))
	}

	path := "/api/v1/bookings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, nil, err
	}

	var wrapper struct {
		Metadata
		Data []model.Booking `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list: %w", err)
	}
	return wrapper.Data, &wrapper.Metadata, nil
}

func (c *BookingClient) Update(ctx context.Context, id string, update model.BookingUpdate) (*model.Booking, error) {
	resp, err := c.httpClient.PATCH(ctx, bookingPath(id), update)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

// Cancel sends no body when reason is empty so the server applies its
// default reason.
func (c *BookingClient) Cancel(ctx context.Context, id, reason string) (*model.Booking, error) {
	var body any
	if reason != "" {
		body = model.CancelRequest{Reason: reason}
	}
	resp, err := c.httpClient.POST(ctx, bookingPath(id)+"/cancel", body)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Approve(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, bookingPath(id)+"/approve", nil)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Reject(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, bookingPath(id)+"/reject", nil)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, bookingPath(id))
	if err != nil {
		return err
	}
	return resp.Err()
}

func (c *BookingClient) CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (*model.AvailabilityCheck, error) {
	q := url.Values{}
	q.Set("resource_id", resourceID)
	q.Set("start_time", start.UTC().Format(time.RFC3339))
	q.Set("end_time", end.UTC().Format(time.RFC3339))

	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/availability?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var check model.AvailabilityCheck
	if err := decodeData(resp, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ResourceAvailability lists booked slots between two calendar days,
// inclusive. Zero dates are left to the server defaults.
func (c *BookingClient) ResourceAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time) (*model.ResourceAvailability, error) {
	q := url.Values{}
	if !startDate.IsZero() {
		q.Set("start_date", startDate.Format(time.DateOnly))
	}
	if !endDate.IsZero() {
		q.Set("end_date", endDate.Format(time.DateOnly))
	}

	path := "/api/v1/resources/id/" + url.PathEscape(resourceID) + "/availability"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var availability model.ResourceAvailability
	if err := decodeData(resp, &availability); err != nil {
		return nil, err
	}
	return &availability, nil
}

func bookingPath(id string) string {
	return "/api/v1/bookings/id/" + url.PathEscape(id)
}

func decodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := decodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func decodeData(resp *Response, target any) error {
	if err := resp.Err(); err != nil {
		return err
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return fmt.Errorf("could not decode response envelope: %w", err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data: %w", err)
	}
	return nil
}
