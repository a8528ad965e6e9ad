// Package dto holds the JSON bodies of the HTTP API, mirroring the schemas in
// openapi-dating.yaml.
package dto

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/oapi-codegen/nullable"
)

type (
	RegisterRequest struct {
		Username    string `json:"username" validate:"required,min=3,max=32,alphanum"`
		Password    string `json:"password" validate:"required,min=6,max=64"`
		KnownAs     string `json:"knownAs" validate:"required"`
		Gender      string `json:"gender" validate:"required,oneof=male female"`
		DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
		City        string `json:"city" validate:"required"`
		Country     string `json:"country" validate:"required"`
	}

	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	UserToken struct {
		Username string `json:"username"`
		KnownAs  string `json:"knownAs"`
		Gender   string `json:"gender"`
		PhotoURL string `json:"photoUrl,omitempty"`
		Token    string `json:"token"`
	}

	MemberUpdate struct {
		Introduction string `json:"introduction" validate:"max=4000"`
		LookingFor   string `json:"lookingFor" validate:"max=4000"`
		Interests    string `json:"interests" validate:"max=4000"`
		City         string `json:"city" validate:"max=200"`
		Country      string `json:"country" validate:"max=200"`
	}

	// MemberPatch distinguishes an absent field from an explicit null.
	MemberPatch struct {
		Introduction nullable.Nullable[string] `json:"introduction,omitempty"`
		LookingFor   nullable.Nullable[string] `json:"lookingFor,omitempty"`
		Interests    nullable.Nullable[string] `json:"interests,omitempty"`
		City         nullable.Nullable[string] `json:"city,omitempty"`
		Country      nullable.Nullable[string] `json:"country,omitempty"`
	}

	Photo struct {
		ID         uuid.UUID `json:"id"`
		URL        string    `json:"url"`
		IsMain     bool      `json:"isMain"`
		IsApproved bool      `json:"isApproved"`
	}

	PhotoForApproval struct {
		ID         uuid.UUID `json:"id"`
		URL        string    `json:"url"`
		Username   string    `json:"username"`
		IsApproved bool      `json:"isApproved"`
	}

	Member struct {
		ID           uuid.UUID `json:"id"`
		Username     string    `json:"username"`
		PhotoURL     string    `json:"photoUrl,omitempty"`
		Age          int       `json:"age"`
		KnownAs      string    `json:"knownAs"`
		Gender       string    `json:"gender"`
		Created      time.Time `json:"created"`
		LastActive   time.Time `json:"lastActive"`
		Introduction string    `json:"introduction"`
		LookingFor   string    `json:"lookingFor"`
		Interests    string    `json:"interests"`
		City         string    `json:"city"`
		Country      string    `json:"country"`
		Photos       []Photo   `json:"photos,omitempty"`
	}

	LikedMember struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
		Age      int       `json:"age"`
		KnownAs  string    `json:"knownAs"`
		PhotoURL string    `json:"photoUrl,omitempty"`
		City     string    `json:"city"`
	}

	CreateMessage struct {
		RecipientUsername string `json:"recipientUsername" validate:"required"`
		Content           string `json:"content" validate:"required,min=1,max=2000"`
	}

	Message struct {
		ID                uuid.UUID  `json:"id"`
		SenderID          uuid.UUID  `json:"senderId"`
		SenderUsername    string     `json:"senderUsername"`
		SenderPhotoURL    string     `json:"senderPhotoUrl,omitempty"`
		RecipientID       uuid.UUID  `json:"recipientId"`
		RecipientUsername string     `json:"recipientUsername"`
		RecipientPhotoURL string     `json:"recipientPhotoUrl,omitempty"`
		Content           string     `json:"content"`
		DateRead          *time.Time `json:"dateRead"`
		MessageSent       time.Time  `json:"messageSent"`
		SenderDeleted     bool       `json:"senderDeleted"`
		RecipientDeleted  bool       `json:"recipientDeleted"`
	}

	ThreadConnection struct {
		ID    string `json:"id"`
		Group string `json:"group"`
	}

	MemberGraph struct {
		Member           Member        `json:"member"`
		Photos           []Photo       `json:"photos"`
		LikedBy          []LikedMember `json:"likedBy"`
		Liked            []LikedMember `json:"liked"`
		MessagesReceived []Message     `json:"messagesReceived"`
		MessagesSent     []Message     `json:"messagesSent"`
	}
)
