package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/LeventeLantos/modem-sms/internal/model"
)

// RPC method names.
const (
	MethodSendSMS           = "SendSMS"
	MethodGetSendSMSResult  = "GetSendSMSResult"
	MethodGetSMSContactList = "GetSMSContactList"
	MethodGetSMSContentList = "GetSMSContentList"
	MethodDeleteSMS         = "DeleteSMS"
)

// Request ids the modem web UI sends with each method.
const (
	idSendSMS           = "6.6"
	idGetSendSMSResult  = "6.7"
	idGetSMSContactList = "6.2"
	idGetSMSContentList = "6.3"
	idDeleteSMS         = "6.5"
)

const (
	smsTimeLayout = "2006-01-02 15:04:05"
	unreadTag     = 1
)

// Send status codes reported by GetSendSMSResult.
const (
	SendStatusNone    = 0
	SendStatusSending = 1
	SendStatusSuccess = 2
)

// DelFlag values for DeleteSMS.
const (
	DelAll     = 0
	DelContact = 1
	DelSingle  = 2
)

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Method  string
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error code=%s message=%q", e.Method, string(e.Code), e.Message)
}

var (
	ErrRPC = errors.New("rpc error")
	// ErrMissingID is returned by scoped deletes given an empty id.
	ErrMissingID = errors.New("missing contact or message id")
)

func (e *RPCError) Is(target error) bool { return target == ErrRPC }

type ModemClient struct {
	url     string
	origin  string
	client  *http.Client
	nowFunc func() time.Time
}

func NewModemClient(endpoint string, timeout time.Duration) (*ModemClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse modem url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("modem url must be absolute: %q", endpoint)
	}
	return &ModemClient{
		url:    endpoint,
		origin: u.Scheme + "://" + u.Host,
		client: &http.Client{
			Timeout: timeout,
		},
		nowFunc: time.Now,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call issues one JSON-RPC request and returns its result member.
func (c *ModemClient) Call(ctx context.Context, method, id string, params any) (gjson.Result, error) {
	if params == nil {
		params = struct{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return gjson.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Referer", c.origin+"/index.html")

	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read body: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: unexpected status code: %d body=%q", method, resp.StatusCode, string(body))
	}

	var rr rpcResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return gjson.Result{}, fmt.Errorf("%s: failed to decode json: %w body=%q", method, err, string(body))
	}
	if rr.Error != nil {
		rr.Error.Method = method
		return gjson.Result{}, rr.Error
	}
	return gjson.ParseBytes(rr.Result), nil
}

type sendSMSParams struct {
	SMSId       int      `json:"SMSId"`
	SMSContent  string   `json:"SMSContent"`
	PhoneNumber []string `json:"PhoneNumber"`
	SMSTime     string   `json:"SMSTime"`
}

// SendSMS queues a message. Delivery completes asynchronously; see
// SendResult.
func (c *ModemClient) SendSMS(ctx context.Context, numbers []string, content string) error {
	_, err := c.Call(ctx, MethodSendSMS, idSendSMS, sendSMSParams{
		SMSId:       -1,
		SMSContent:  content,
		PhoneNumber: numbers,
		SMSTime:     c.nowFunc().Format(smsTimeLayout),
	})
	return err
}

// SendResult returns the modem's SendStatus for the last queued message.
func (c *ModemClient) SendResult(ctx context.Context) (int, error) {
	res, err := c.Call(ctx, MethodGetSendSMSResult, idGetSendSMSResult, nil)
	if err != nil {
		return 0, err
	}
	v := res.Get("SendStatus")
	if !v.Exists() {
		return 0, fmt.Errorf("%s: missing SendStatus in result=%q", MethodGetSendSMSResult, res.Raw)
	}
	return int(v.Int()), nil
}

type contactListParams struct {
	Page    int  `json:"Page"`
	TagType *int `json:"TagType,omitempty"`
}

// ContactList returns one page of the per-contact list, optionally
// restricted to unread messages.
func (c *ModemClient) ContactList(ctx context.Context, page int, unreadOnly bool) (gjson.Result, error) {
	p := contactListParams{Page: page}
	if unreadOnly {
		tag := unreadTag
		p.TagType = &tag
	}
	return c.Call(ctx, MethodGetSMSContactList, idGetSMSContactList, p)
}

type contentListParams struct {
	Page      int      `json:"Page"`
	ContactID model.ID `json:"ContactId"`
}

// ContentList returns one page of the messages exchanged with a contact.
func (c *ModemClient) ContentList(ctx context.Context, page int, contactID model.ID) (gjson.Result, error) {
	return c.Call(ctx, MethodGetSMSContentList, idGetSMSContentList, contentListParams{
		Page:      page,
		ContactID: contactID,
	})
}

type deleteParams struct {
	DelFlag   int       `json:"DelFlag"`
	ContactID *model.ID `json:"ContactId,omitempty"`
	SMSId     any       `json:"SMSId,omitempty"`
}

// DeleteMessage removes one message from a contact's thread.
func (c *ModemClient) DeleteMessage(ctx context.Context, contactID, smsID model.ID) error {
	if contactID.IsZero() || smsID.IsZero() {
		return fmt.Errorf("%s: %w", MethodDeleteSMS, ErrMissingID)
	}
	_, err := c.Call(ctx, MethodDeleteSMS, idDeleteSMS, deleteParams{
		DelFlag:   DelSingle,
		ContactID: &contactID,
		SMSId:     smsID,
	})
	return err
}

// DeleteContact removes every message exchanged with a contact.
func (c *ModemClient) DeleteContact(ctx context.Context, contactID model.ID) error {
	if contactID.IsZero() {
		return fmt.Errorf("%s: %w", MethodDeleteSMS, ErrMissingID)
	}
	_, err := c.Call(ctx, MethodDeleteSMS, idDeleteSMS, deleteParams{
		DelFlag:   DelContact,
		ContactID: &contactID,
		SMSId:     0,
	})
	return err
}

// DeleteAll clears every stored message in a single call.
func (c *ModemClient) DeleteAll(ctx context.Context) error {
	_, err := c.Call(ctx, MethodDeleteSMS, idDeleteSMS, deleteParams{DelFlag: DelAll})
	return err
}
