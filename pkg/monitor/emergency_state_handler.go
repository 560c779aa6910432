package monitor

import (
	"time"

	"github.com/sirupsen/logrus"
)

type EmergencyState struct {
	IsActive       bool
	SentCount      int
	LastSentTime   time.Time // zero while nothing was sent in the current excursion
	LastAlertState bool
}

func (s *EmergencyState) reset(active bool) {
	s.IsActive = active
	s.SentCount = 0
	s.LastSentTime = time.Time{}
}

// transitionHandler reacts to the edge it recognises and hands everything else on.
type transitionHandler interface {
	execute(state *EmergencyState, hasAlert bool)
	setNext(transitionHandler)
}

type baseTransition struct {
	next transitionHandler
	log  *logrus.Entry
}

func (bt *baseTransition) execute(state *EmergencyState, hasAlert bool) {}

func (bt *baseTransition) setNext(next transitionHandler) {
	bt.next = next
}

type onsetHandler struct {
	baseTransition
}

func (h *onsetHandler) execute(state *EmergencyState, hasAlert bool) {
	if hasAlert && !state.LastAlertState {
		h.log.Warnln("alert detected, starting emergency mode")
		state.reset(true)
	} else {
		h.next.execute(state, hasAlert)
	}
}

type recoveryHandler struct {
	baseTransition
}

func (h *recoveryHandler) execute(state *EmergencyState, hasAlert bool) {
	if !hasAlert && state.LastAlertState {
		h.log.Infoln("alert cleared, stopping emergency mode")
		state.reset(false)
	} else {
		h.next.execute(state, hasAlert)
	}
}

// steadyHandler ends the chain: no edge, nothing to change.
type steadyHandler struct {
	baseTransition
}

func newTransitionChain(log *logrus.Entry) transitionHandler {
	onset := &onsetHandler{baseTransition{log: log}}
	recovery := &recoveryHandler{baseTransition{log: log}}
	steady := &steadyHandler{baseTransition{log: log}}
	onset.setNext(recovery)
	recovery.setNext(steady)
	return onset
}
