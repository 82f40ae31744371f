// Package protocol defines the named messages exchanged with the party
// authority. Every frame is a JSON envelope {"type": kind, "payload": {...}}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/stars-party/internal/roster"
)

var ErrMalformedPayload = errors.New("malformed payload")
var ErrUnknownKind = errors.New("unknown message kind")

type Kind string

// Server -> client
const (
	KindInitialData          Kind = "initial_data"
	KindServerInfo           Kind = "server_info"
	KindPartyUpdated         Kind = "party_updated"
	KindCharacterSelected    Kind = "character_selected"
	KindServerError          Kind = "server_error"
	KindUpdateSuccess        Kind = "update_success"
	KindAllCharactersUpdated Kind = "all_characters_updated"
)

// Client -> server
const (
	KindRequestInitialData  Kind = "request_initial_data"
	KindSelectCharacter     Kind = "select_character"
	KindAddToParty          Kind = "add_to_party"
	KindMoveCharacter       Kind = "move_character"
	KindRemoveFromParty     Kind = "remove_from_party"
	KindExternalPartyUpdate Kind = "external_party_update"
)

var inbound = map[Kind]bool{
	KindInitialData:          true,
	KindServerInfo:           true,
	KindPartyUpdated:         true,
	KindCharacterSelected:    true,
	KindServerError:          true,
	KindUpdateSuccess:        true,
	KindAllCharactersUpdated: true,
}

func (k Kind) Inbound() bool { return inbound[k] }

type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Encode(kind Kind, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}
	return env, nil
}

// DecodePayload unmarshals an envelope payload into T. A missing payload
// decodes as an empty object so field-level checks decide validity.
func DecodePayload[T any](env Envelope) (T, error) {
	var v T
	raw := env.Payload
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
	}
	return v, nil
}

type PartyAction string

const (
	ActionAdd        PartyAction = "add"
	ActionRemove     PartyAction = "remove"
	ActionMove       PartyAction = "move"
	ActionFullUpdate PartyAction = "full_update"
)

// InitialData keeps both halves raw; a bad roster must not discard a good
// party and vice versa.
type InitialData struct {
	Characters json.RawMessage `json:"characters"`
	Party      json.RawMessage `json:"party"`
}

// Notice is the payload of server_info, server_error and update_success.
type Notice struct {
	Message string `json:"message"`
}

type PartyUpdated struct {
	Party         json.RawMessage   `json:"party"`
	Action        PartyAction       `json:"action"`
	Character     *roster.Character `json:"character,omitempty"`
	CharacterName string            `json:"character_name,omitempty"`
	UpdatedSlot   *int              `json:"updated_slot,omitempty"`
	UpdatedSlots  []int             `json:"updated_slots,omitempty"`
	Source        string            `json:"source,omitempty"`
}

// Name is whichever character name the update carries.
func (p PartyUpdated) Name() string {
	if p.Character != nil && p.Character.Name != "" {
		return p.Character.Name
	}
	return p.CharacterName
}

type CharacterSelected struct {
	Character       *roster.Character `json:"character"`
	RecruitmentInfo string            `json:"recruitment_info"`
}

type AllCharactersUpdated struct {
	Characters json.RawMessage `json:"characters"`
}

type SelectCharacter struct {
	CharacterName string `json:"character_name"`
}

type AddToParty struct {
	CharacterName string `json:"character_name"`
	Slot          int    `json:"slot"`
}

type MoveCharacter struct {
	CharacterName string `json:"character_name"`
	FromSlot      int    `json:"from_slot"`
	ToSlot        int    `json:"to_slot"`
}

type RemoveFromParty struct {
	Slot int `json:"slot"`
}

type ExternalPartyUpdate struct {
	Party  roster.Party `json:"party"`
	Source string       `json:"source"`
}

// SourceUI tags resyncs started from this client.
const SourceUI = "ui"
