package dispatch

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/stars-party/internal/notify"
	"github.com/DoyleJ11/stars-party/internal/protocol"
	"github.com/DoyleJ11/stars-party/internal/roster"
	"github.com/DoyleJ11/stars-party/internal/store"
)

func (d *Dispatcher) onInitialData(env protocol.Envelope) (Refresh, error) {
	data, err := protocol.DecodePayload[protocol.InitialData](env)
	if err != nil {
		d.payloadError(env.Type, "Error loading data", err)
		d.store.SetLoading(false)
		return RefreshLoading, err
	}

	// Parse both halves before applying either.
	chars, rosterErr := roster.ParseRoster(data.Characters)
	party, partyErr := roster.ParseParty(data.Party)

	if rosterErr != nil {
		d.payloadError(env.Type, "Error loading characters data", rosterErr)
		chars = roster.Roster{}
	}
	d.store.ReplaceRoster(chars)

	if partyErr != nil {
		d.payloadError(env.Type, "Error loading party data", partyErr)
	} else {
		d.store.ReplaceParty(party)
	}

	d.store.SetLoading(false)
	if rosterErr == nil && partyErr == nil {
		d.log.Info("initial data loaded", zap.Int("characters", len(chars)), zap.Int("party", len(party.Members())))
		d.notifier.Push(notify.LevelSuccess, "Data loaded successfully")
	}
	return RefreshAll, multierr.Combine(rosterErr, partyErr)
}

func (d *Dispatcher) onServerInfo(env protocol.Envelope) (Refresh, error) {
	n, err := protocol.DecodePayload[protocol.Notice](env)
	if err != nil {
		d.log.Warn("bad server_info", zap.Error(err))
		return RefreshNone, err
	}
	if n.Message != "" {
		d.notifier.Push(notify.LevelInfo, n.Message)
	}
	return RefreshNone, nil
}

func (d *Dispatcher) onPartyUpdated(env protocol.Envelope) (Refresh, error) {
	pu, err := protocol.DecodePayload[protocol.PartyUpdated](env)
	if err != nil {
		d.payloadError(env.Type, "Invalid party data received", err)
		return RefreshNone, err
	}
	party, err := roster.ParseParty(pu.Party)
	if err != nil {
		d.payloadError(env.Type, "Invalid party data received", err)
		return RefreshNone, err
	}

	d.store.ReplaceParty(party)

	name := pu.Name()
	if name == "" {
		name = "Character"
	}
	switch pu.Action {
	case protocol.ActionAdd:
		d.notifier.Push(notify.LevelSuccess, name+" added to party")
	case protocol.ActionRemove:
		d.notifier.Push(notify.LevelInfo, name+" removed from party")
	case protocol.ActionMove:
		d.notifier.Push(notify.LevelInfo, name+" moved in party")
	case protocol.ActionFullUpdate:
		d.notifier.Push(notify.LevelInfo, "Party synchronized from external update")
	default:
		d.log.Debug("party update without known action", zap.String("action", string(pu.Action)))
	}

	// Roster membership markers read the party, so both re-render.
	return RefreshParty | RefreshRoster, nil
}

func (d *Dispatcher) onCharacterSelected(env protocol.Envelope) (Refresh, error) {
	cs, err := protocol.DecodePayload[protocol.CharacterSelected](env)
	if err == nil && (cs.Character == nil || cs.Character.Name == "") {
		err = fmt.Errorf("%w: character_selected without character", protocol.ErrMalformedPayload)
	}
	if err != nil {
		d.payloadError(env.Type, "Invalid character data received", err)
		return RefreshNone, err
	}

	recruitment := cs.RecruitmentInfo
	if recruitment == "" {
		recruitment = cs.Character.Recruitment
	}
	d.store.SetDetail(store.Detail{Character: *cs.Character, Recruitment: recruitment})
	return RefreshDetail, nil
}

func (d *Dispatcher) onServerError(env protocol.Envelope) (Refresh, error) {
	n, err := protocol.DecodePayload[protocol.Notice](env)
	if err != nil || n.Message == "" {
		n.Message = "An unexpected error occurred"
	}
	d.notifier.Push(notify.LevelError, "Error: "+n.Message)
	return RefreshNone, nil
}

func (d *Dispatcher) onUpdateSuccess(env protocol.Envelope) (Refresh, error) {
	n, err := protocol.DecodePayload[protocol.Notice](env)
	if err != nil {
		d.log.Warn("bad update_success", zap.Error(err))
		return RefreshNone, err
	}
	if n.Message != "" {
		d.notifier.Push(notify.LevelSuccess, n.Message)
	}
	return RefreshNone, nil
}

func (d *Dispatcher) onAllCharactersUpdated(env protocol.Envelope) (Refresh, error) {
	u, err := protocol.DecodePayload[protocol.AllCharactersUpdated](env)
	if err != nil {
		d.payloadError(env.Type, "Error loading characters data", err)
		return RefreshNone, err
	}
	chars, err := roster.ParseRoster(u.Characters)
	if err != nil {
		d.payloadError(env.Type, "Error loading characters data", err)
		return RefreshNone, err
	}
	d.store.ReplaceRoster(chars)
	return RefreshRoster, nil
}
