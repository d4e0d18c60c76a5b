package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ID is an opaque identifier that the backend may send as a string or a number.
type ID string

// UnmarshalJSON accepts both quoted and bare numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(string(data))
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Amount is a monetary value as sent by the backend: a number, a numeric string, or absent.
// Valid is false only when the field was null or missing. Strings that fail to parse are
// present with a zero value so they never propagate as NaN.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps a present decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// ParseAmount parses a decimal string. Empty input is treated as "0".
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount{Value: ParseAmount(s), Valid: true}
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		*a = Amount{Value: decimal.Zero, Valid: true}
		return nil
	}
	*a = Amount{Value: ParseAmount(string(data)), Valid: true}
	return nil
}

// MarshalJSON writes the amount as a JSON number, or null when absent.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// dateLayouts are tried in order when decoding a Date.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// Date is a timestamp as sent by the backend: RFC 3339, a bare date, empty or absent.
// Valid is false when the field was null, empty or unparsable.
type Date struct {
	Time  time.Time
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on a malformed value.
func (d *Date) UnmarshalJSON(data []byte) error {
	*d = Date{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d = Date{Time: t, Valid: true}
			return nil
		}
	}
	return nil
}

// MarshalJSON writes the date as RFC 3339, or null when absent.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Status is a named entry of the backend-owned status directory.
type Status struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// StatusRef is the optional resolved status embedded in a deal.
type StatusRef struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Person is a reference to a user embedded in deal payloads.
type Person struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// User is a system user as returned by the backend.
type User struct {
	ID                     ID     `json:"id"`
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	Username               string `json:"username"`
	Role                   string `json:"role"`
	ManagerID              ID     `json:"managerId,omitempty"`
	DefaultCommissionType  string `json:"defaultCommissionType,omitempty"`
	DefaultCommissionValue Amount `json:"defaultCommissionValue"`
}

// MediaFile is a document attached to a deal.
type MediaFile struct {
	ID       ID     `json:"id"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
}

// CommissionRecord is the legacy per-deal commission shape.
type CommissionRecord struct {
	ID             ID         `json:"id"`
	DealID         ID         `json:"dealId"`
	ExpectedAmount Amount     `json:"expectedAmount"`
	PaidAmount     Amount     `json:"paidAmount"`
	IsOverride     bool       `json:"isOverride,omitempty"`
	OverrideReason string     `json:"overrideReason,omitempty"`
	DueDate        Date       `json:"dueDate"`
	PaidDate       Date       `json:"paidDate"`
}

// TotalCommission is the current aggregate commission object.
type TotalCommission struct {
	CommissionValue Amount `json:"commissionValue"`
	Value           Amount `json:"value"`
	Type            string `json:"type,omitempty"`
}

// AgentCommissions aggregates what is owed to and paid out to agents.
type AgentCommissions struct {
	TotalExpected Amount `json:"totalExpected"`
	TotalPaid     Amount `json:"totalPaid"`
}

// CollectedCommissions aggregates money received by the company.
type CollectedCommissions struct {
	TotalCollected Amount `json:"totalCollected"`
}

// TransferredCommissions aggregates money paid out by the company.
type TransferredCommissions struct {
	TotalTransferred Amount `json:"totalTransferred"`
}

// Deal is a real-estate transaction. Several commission shapes may coexist.
type Deal struct {
	ID           ID         `json:"id"`
	DealNumber   string     `json:"dealNumber"`
	DealValue    Amount     `json:"dealValue"`
	StatusID     ID         `json:"statusId"`
	Status       *StatusRef `json:"status,omitempty"`
	DeveloperID  ID         `json:"developerId,omitempty"`
	ProjectID    ID         `json:"projectId,omitempty"`
	PropertyID   ID         `json:"propertyId,omitempty"`
	UnitID       ID         `json:"unitId,omitempty"`
	BuyerID      ID         `json:"buyerId,omitempty"`
	SellerID     ID         `json:"sellerId,omitempty"`
	AgentID      ID         `json:"agentId,omitempty"`
	ManagerID    ID         `json:"managerId,omitempty"`
	Agent        *Person    `json:"agent,omitempty"`
	Manager      *Person    `json:"manager,omitempty"`
	FinanceNotes string     `json:"financeNotes,omitempty"`

	Media []MediaFile `json:"media,omitempty"`

	Commissions            []CommissionRecord      `json:"commissions,omitempty"`
	TotalCommission        *TotalCommission        `json:"totalCommission,omitempty"`
	AgentCommissions       *AgentCommissions       `json:"agentCommissions,omitempty"`
	CollectedCommissions   *CollectedCommissions   `json:"collectedCommissions,omitempty"`
	TransferredCommissions *TransferredCommissions `json:"transferredCommissions,omitempty"`
	TotalCommissionValue   Amount                  `json:"totalCommissionValue"`

	CreatedAt Date `json:"createdAt"`
	UpdatedAt Date `json:"updatedAt"`
}

// StatusName returns the embedded status name, if any.
func (d Deal) StatusName() string {
	if d.Status == nil {
		return ""
	}
	return d.Status.Name
}

// CurrentStatusID returns statusId, falling back to the embedded status reference.
func (d Deal) CurrentStatusID() ID {
	if d.StatusID != "" {
		return d.StatusID
	}
	if d.Status != nil {
		return d.Status.ID
	}
	return ""
}

// PrimaryAgentID returns the deal's agent id from either the flat field or the embedded person.
func (d Deal) PrimaryAgentID() ID {
	if d.AgentID != "" {
		return d.AgentID
	}
	if d.Agent != nil {
		return d.Agent.ID
	}
	return ""
}

// PrimaryManagerID returns the deal's manager id from either the flat field or the embedded person.
func (d Deal) PrimaryManagerID() ID {
	if d.ManagerID != "" {
		return d.ManagerID
	}
	if d.Manager != nil {
		return d.Manager.ID
	}
	return ""
}

// DealFilters narrows GetDeals.
type DealFilters struct {
	StatusID ID
	AgentID  ID
	Search   string
}

// DealPage is a page of deals. Total is zero when the backend omits it.
type DealPage struct {
	Data  []Deal `json:"data"`
	Total int    `json:"total"`
}

// UnmarshalJSON accepts a {"data", "total"} envelope or a bare array of deals.
func (p *DealPage) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = DealPage{}
		return nil
	}
	if trimmed[0] == '[' {
		var data []Deal
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return err
		}
		*p = DealPage{Data: data, Total: len(data)}
		return nil
	}
	type envelope DealPage
	var out envelope
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*p = DealPage(out)
	return nil
}

// DealPatch carries editable deal overview and finance fields. Nil fields are left untouched.
type DealPatch struct {
	DealValue       *float64 `json:"dealValue,omitempty"`
	TotalCommission *float64 `json:"totalCommission,omitempty"`
	FinanceNotes    *string  `json:"financeNotes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p DealPatch) Empty() bool {
	return p.DealValue == nil && p.TotalCommission == nil && p.FinanceNotes == nil
}

// DealAgents lists the people a transfer may be addressed to.
type DealAgents struct {
	Agents   []Person `json:"agents"`
	Managers []Person `json:"managers"`
}

// SelectOption is an id/name selector entry (collection sources, collection types).
type SelectOption struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// CollectionRequest records money received for a deal.
type CollectionRequest struct {
	DealID           ID        `json:"dealId"`
	SourceID         ID        `json:"sourceId"`
	CollectionTypeID ID        `json:"collectionTypeId"`
	Amount           float64   `json:"amount"`
	CollectionDate   time.Time `json:"collectionDate"`
	Notes            string    `json:"notes,omitempty"`
}

// Collection is an immutable ledger entry of money received.
type Collection struct {
	ID               ID         `json:"id"`
	DealID           ID         `json:"dealId"`
	SourceID         ID         `json:"sourceId"`
	Source           string     `json:"source,omitempty"`
	CollectionTypeID ID         `json:"collectionTypeId"`
	Amount           Amount     `json:"amount"`
	CollectionDate   Date       `json:"collectionDate"`
	Notes            string     `json:"notes,omitempty"`
}

// TransferRequest records money paid out to an agent or manager.
type TransferRequest struct {
	DealID        ID      `json:"dealId"`
	RecipientID   ID      `json:"recipientId"`
	RecipientType string  `json:"recipientType"`
	Amount        float64 `json:"amount"`
	Notes         string  `json:"notes,omitempty"`
}

// Transfer is an immutable ledger entry of money paid out.
type Transfer struct {
	ID            ID         `json:"id"`
	DealID        ID         `json:"dealId"`
	RecipientID   ID         `json:"recipientId"`
	RecipientType string     `json:"recipientType"`
	Amount        Amount     `json:"amount"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     Date       `json:"createdAt"`
}
