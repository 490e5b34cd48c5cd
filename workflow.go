package cfddns

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is the progress of the setup conversation.
type State int

const (
	StateIdle State = iota
	StateTokenEntry
	StateTokenValidated
	StateZoneEntry
	StateZoneValidated
	StateRecordEntry
	StateComplete
	StateCancelled
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateTokenEntry:     "token_entry",
	StateTokenValidated: "token_validated",
	StateZoneEntry:      "zone_entry",
	StateZoneValidated:  "zone_validated",
	StateRecordEntry:    "record_entry",
	StateComplete:       "complete",
	StateCancelled:      "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

const tokenHelpURL = "https://developers.cloudflare.com/fundamentals/api/get-started/create-token"

// Workflow drives setup, update and reset against a DNS provider.
// It is not safe for concurrent use; operations are expected to run one at a time.
//
// It should be constructed using New.
type Workflow struct {
	settings *Settings
	store    SettingsStore

	resolver      Resolver
	newProvider   ProviderFactory
	cloudflareURL string
	httpClient    *http.Client
	timeout       time.Duration

	ui      UI
	logger  logrus.FieldLogger
	metrics *Metrics
	now     func() time.Time

	state State
}

// State returns the state reached by the most recent call to Setup.
func (w *Workflow) State() State { return w.state }

// Settings returns a copy of the current settings.
func (w *Workflow) Settings() Settings { return *w.settings }

func (w *Workflow) operationLogger(op string) logrus.FieldLogger {
	return w.logger.WithFields(logrus.Fields{
		"op":     op,
		"run_id": uuid.NewString(),
	})
}

func (w *Workflow) enter(log logrus.FieldLogger, s State) State {
	log.Debugf("setup state %s -> %s", w.state, s)
	w.state = s
	return s
}

// Setup asks for the token, zone and record in that order, validating each answer before asking the next.
//
// The token and zone are saved as soon as the zone has been validated;
// the record is saved once it has been validated too.
// Any invalid answer, read failure, or save failure ends the conversation in StateCancelled.
func (w *Workflow) Setup(ctx context.Context, prompt Prompter) State {
	log := w.operationLogger("setup")
	w.state = StateIdle
	w.ui.Info("Setup will start now.")

	cancelled := func() State {
		w.ui.Info("Setup cancelled.")
		return w.enter(log, StateCancelled)
	}

	w.enter(log, StateTokenEntry)
	w.ui.Question("What's your Cloudflare API token? See: " + tokenHelpURL)
	token, err := prompt.Prompt(true)
	if err != nil {
		log.WithError(err).Debug("unable to read token")
		return cancelled()
	}
	token = strings.TrimSpace(token)

	w.ui.Info("Validating API token...")
	provider := w.provider(token, log)
	if !provider.ValidateToken(ctx) {
		w.ui.Error("Token is invalid.")
		return cancelled()
	}
	w.ui.Success("Token is valid.")
	w.enter(log, StateTokenValidated)

	w.enter(log, StateZoneEntry)
	w.ui.Question("What's your Cloudflare Zone ID?")
	zoneID, err := prompt.Prompt(false)
	if err != nil {
		log.WithError(err).Debug("unable to read zone id")
		return cancelled()
	}
	zoneID = strings.TrimSpace(zoneID)

	w.ui.Info("Validating zone ID...")
	if !provider.ValidateZone(ctx, zoneID) {
		w.ui.Error("Zone ID is invalid.")
		return cancelled()
	}
	w.ui.Success("Zone ID is valid.")
	w.enter(log, StateZoneValidated)

	next := *w.settings
	next.Token = token
	next.ZoneID = zoneID
	if err := w.save(log, next); err != nil {
		return cancelled()
	}

	w.showRecords(provider.ListRecords(ctx, zoneID))

	w.enter(log, StateRecordEntry)
	w.ui.Question("What's the record ID that you wish to update automatically?")
	recordID, err := prompt.Prompt(false)
	if err != nil {
		log.WithError(err).Debug("unable to read record id")
		return cancelled()
	}
	recordID = strings.TrimSpace(recordID)

	w.ui.Info("Validating record ID...")
	if !provider.ValidateRecord(ctx, zoneID, recordID) {
		w.ui.Error("Record ID is invalid.")
		return cancelled()
	}
	w.ui.Success("Record ID is valid.")

	next.RecordID = recordID
	if err := w.save(log, next); err != nil {
		return cancelled()
	}
	w.ui.Success("Setup completed.")
	return w.enter(log, StateComplete)
}

func (w *Workflow) save(log logrus.FieldLogger, s Settings) error {
	if err := w.store.Save(s); err != nil {
		log.WithError(err).Error("unable to save settings")
		w.ui.Error(fmt.Sprintf("Unable to save settings: %s", err))
		return err
	}
	*w.settings = s
	return nil
}

// UpdateStatus classifies the result of Update.
type UpdateStatus int

const (
	UpdateSetupRequired UpdateStatus = iota
	UpdateNoAddress
	UpdateTransportFailed
	UpdateSucceeded
	UpdateRejected
)

func (s UpdateStatus) String() string {
	switch s {
	case UpdateSetupRequired:
		return "setup required"
	case UpdateNoAddress:
		return "no address"
	case UpdateTransportFailed:
		return "transport failed"
	case UpdateSucceeded:
		return "succeeded"
	case UpdateRejected:
		return "rejected"
	}
	return fmt.Sprintf("UpdateStatus(%d)", int(s))
}

// UpdateResult is the result of Update.
// Address is set once resolution succeeded and Outcome once the provider was called.
type UpdateResult struct {
	Status  UpdateStatus
	Address PublicAddress
	Outcome UpdateOutcome
}

// OK reports whether the record now points at Address.
func (r UpdateResult) OK() bool {
	return r.Status == UpdateSucceeded
}

// Message is the line shown to the user for r.
func (r UpdateResult) Message() string {
	switch r.Status {
	case UpdateSetupRequired:
		return "You need to run setup before."
	case UpdateNoAddress:
		return "Unable to get your public ip address."
	case UpdateTransportFailed:
		return "Unable to send API request."
	case UpdateSucceeded:
		return "Default record updated successfully."
	}
	return fmt.Sprintf("Unable to update default record. Reason: %s.", r.Outcome)
}

// Update points the configured record at the current public address.
//
// Nothing is sent anywhere unless all three settings are present,
// and the provider is not called unless an address was resolved.
func (w *Workflow) Update(ctx context.Context) UpdateResult {
	log := w.operationLogger("update")
	s := *w.settings
	if !s.Complete() {
		log.WithError(ErrSetupRequired).Debug("refusing to update")
		return w.reportUpdate(log, UpdateResult{Status: UpdateSetupRequired})
	}

	w.ui.Info("Attempting to update default record.")
	addr, err := w.resolver.Resolve(ctx)
	if err != nil || !addr.IsValid() {
		log.WithError(err).Debug("unable to resolve public address")
		return w.reportUpdate(log, UpdateResult{Status: UpdateNoAddress})
	}
	log = log.WithField("ip", addr.String())

	res := UpdateResult{Address: addr}
	res.Outcome = w.provider(s.Token, log).UpdateRecord(ctx, s.ZoneID, s.RecordID, addr.Addr)
	switch {
	case !res.Outcome.Delivered:
		res.Status = UpdateTransportFailed
	case res.Outcome.OK():
		res.Status = UpdateSucceeded
		w.metrics.updateSucceeded(w.now())
	default:
		res.Status = UpdateRejected
	}
	return w.reportUpdate(log, res)
}

func (w *Workflow) reportUpdate(log logrus.FieldLogger, res UpdateResult) UpdateResult {
	log = log.WithField("status", res.Status.String())
	if res.OK() {
		log.Info("record updated")
		w.ui.Success(res.Message())
		return res
	}
	if res.Outcome.Delivered {
		log = log.WithField("status_code", res.Outcome.StatusCode)
	}
	log.Info("record not updated")
	w.ui.Error(res.Message())
	return res
}

// Reset clears the settings, in memory and in the store.
// It can be called at any time, any number of times.
func (w *Workflow) Reset() error {
	log := w.operationLogger("reset")
	w.ui.Info("Attempting reset.")
	*w.settings = Settings{}
	w.state = StateIdle
	if err := w.store.Reset(); err != nil {
		log.WithError(err).Error("unable to reset settings")
		w.ui.Error(fmt.Sprintf("Unable to reset settings: %s", err))
		return fmt.Errorf("reset: %w", err)
	}
	w.ui.Success("Reset successfully.")
	return nil
}

// Records lists the records of the configured zone.
// It returns ErrSetupRequired without calling the provider when no token or zone is configured.
func (w *Workflow) Records(ctx context.Context) ([]DNSRecord, error) {
	s := *w.settings
	if !s.HasZone() {
		return nil, ErrSetupRequired
	}
	log := w.operationLogger("records")
	return w.provider(s.Token, log).ListRecords(ctx, s.ZoneID), nil
}

// ShowRecords displays the records of the configured zone.
// It reports false when setup has not been run.
func (w *Workflow) ShowRecords(ctx context.Context) bool {
	records, err := w.Records(ctx)
	if err != nil {
		w.ui.Error("You need to run setup before.")
		return false
	}
	w.showRecords(records)
	return true
}

func (w *Workflow) showRecords(records []DNSRecord) {
	w.ui.Success("Zone records:")
	w.ui.Records(records)
}

// ShowPublicIP resolves and displays the public address.
func (w *Workflow) ShowPublicIP(ctx context.Context) PublicAddress {
	log := w.operationLogger("get_ip")
	addr, err := w.resolver.Resolve(ctx)
	if err != nil || !addr.IsValid() {
		log.WithError(err).Debug("unable to resolve public address")
		w.ui.Error("Unable to get your public ip address.")
		return PublicAddress{}
	}
	switch addr.Family {
	case FamilyIPv4, FamilyIPv6:
		w.ui.Success(fmt.Sprintf("Your public %s address is: %s", addr.Family, addr))
	default:
		w.ui.Error("Unknown address format.")
	}
	return addr
}
