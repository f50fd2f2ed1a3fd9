package gerrit

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

// REST entities, only the fields the merger reads.

type changeInfo struct {
	ID              string `json:"id"`
	Project         string `json:"project"`
	Branch          string `json:"branch"`
	Topic           string `json:"topic,omitempty"`
	ChangeID        string `json:"change_id"`
	Subject         string `json:"subject"`
	Status          string `json:"status"`
	Mergeable       bool   `json:"mergeable,omitempty"`
	Submittable     bool   `json:"submittable,omitempty"`
	Number          int    `json:"_number"`
	CurrentRevision string `json:"current_revision,omitempty"`
	MoreChanges     bool   `json:"_more_changes,omitempty"`
}

func (c *changeInfo) toDomain() *domain.Change {
	return &domain.Change{
		Number:          c.Number,
		ChangeID:        c.ChangeID,
		Project:         c.Project,
		Branch:          c.Branch,
		Topic:           c.Topic,
		Subject:         c.Subject,
		Status:          domain.ChangeStatus(c.Status),
		Mergeable:       c.Mergeable,
		Submittable:     c.Submittable,
		CurrentRevision: c.CurrentRevision,
	}
}

type mergeableInfo struct {
	SubmitType string `json:"submit_type"`
	Mergeable  bool   `json:"mergeable"`
}

type relatedChangesInfo struct {
	Changes []relatedChangeAndCommitInfo `json:"changes"`
}

type relatedChangeAndCommitInfo struct {
	Project      string `json:"project"`
	ChangeID     string `json:"change_id"`
	ChangeNumber int    `json:"_change_number"`
	Status       string `json:"status"`
}

type reviewInput struct {
	Message string         `json:"message,omitempty"`
	Tag     string         `json:"tag,omitempty"`
	Labels  map[string]int `json:"labels,omitempty"`
}

// Stream / webhook event attributes.

type eventJSON struct {
	Type           string              `json:"type"`
	Change         *changeAttribute    `json:"change"`
	PatchSet       *patchSetAttribute  `json:"patchSet"`
	Author         *accountAttribute   `json:"author"`
	Uploader       *accountAttribute   `json:"uploader"`
	Changer        *accountAttribute   `json:"changer"`
	Approvals      []approvalAttribute `json:"approvals"`
	EventCreatedOn int64               `json:"eventCreatedOn"`
}

type changeAttribute struct {
	Project string     `json:"project"`
	Branch  string     `json:"branch"`
	ID      string     `json:"id"`
	Number  flexString `json:"number"`
	Topic   string     `json:"topic"`
	Subject string     `json:"subject"`
	Status  string     `json:"status"`
}

type patchSetAttribute struct {
	Number   flexString `json:"number"`
	Revision string     `json:"revision"`
}

type accountAttribute struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (a *accountAttribute) toDomain() domain.Account {
	if a == nil {
		return domain.Account{}
	}
	return domain.Account{Name: a.Name, Email: a.Email, Username: a.Username}
}

type approvalAttribute struct {
	Type     string     `json:"type"`
	Value    flexString `json:"value"`
	OldValue flexString `json:"oldValue"`
}

// flexString accepts both JSON strings and numbers: older servers send change
// numbers and votes as strings, newer ones as integers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) Int() (int, error) {
	return strconv.Atoi(string(f))
}
