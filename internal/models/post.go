package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutosavePostID is the id under which a draft is surfaced as a Post.
const AutosavePostID = "autosave"

// Post is a saved piece of content owned by a single user.
type Post struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_posts_user_updated,priority:1" json:"-"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CoverImage *string   `gorm:"type:text" json:"coverImage"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime:false;index:idx_posts_user_updated,priority:2" json:"updatedAt"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate assigns a server-side identifier.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Autosave is the single unsaved working copy kept per user.
type Autosave struct {
	UserID     string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CoverImage *string   `gorm:"type:text" json:"coverImage"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime:false" json:"createdAt"`
}

// TableName returns the database table name for Autosave.
func (Autosave) TableName() string {
	return "autosaves"
}

// AsPost recasts the draft as a synthetic post. Both timestamps carry the
// draft's creation time.
func (a *Autosave) AsPost() *Post {
	return &Post{
		ID:         AutosavePostID,
		UserID:     a.UserID,
		Content:    a.Content,
		CoverImage: a.CoverImage,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.CreatedAt,
	}
}

// OptionalString distinguishes a field that was omitted from one that was
// sent as null or as a string.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records presence and the nullable value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// OptionalFrom builds a present value from a plain pointer.
func OptionalFrom(v *string) OptionalString {
	return OptionalString{Set: true, Value: v}
}

// NullIfEmpty folds an empty cover image into null.
func NullIfEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
