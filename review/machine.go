package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/storage"
)

// Action is a moderator decision.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
)

func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionDeny
}

// State of a submission as seen by the review workflow.
type State int

const (
	StatePending State = iota
	StateApproved
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateApproved:
		return "approved"
	case StateDenied:
		return "denied"
	default:
		return "pending"
	}
}

// Actor is the moderator pressing the button.
type Actor struct {
	ID        string
	Username  string
	AvatarURL string
}

// Subject bundles what the machine needs to decide a submission.
type Subject struct {
	Descriptor
	Actor Actor
	// Embed is the moderation message embed, copied into the outcome.
	Embed *discordgo.MessageEmbed
}

// Outcome is the result of a transition, ready to be delivered.
type Outcome struct {
	Action       Action
	State        State
	Key          string
	ArtifactURL  string
	Embed        *discordgo.MessageEmbed
	AuditContent string
}

// Machine moves submissions from the pending bucket to their final state.
type Machine struct {
	pending       storage.Store
	approved      storage.Store
	publicBaseURL string
	now           func() time.Time
	log           *zap.Logger
}

func NewMachine(pending, approved storage.Store, publicBaseURL string, log *zap.Logger) *Machine {
	return &Machine{
		pending:       pending,
		approved:      approved,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
		log:           log,
	}
}

// WithClock overrides the time source used for embed timestamps.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// ArtifactURL is the public address of an approved pillow.
func (m *Machine) ArtifactURL(key string) string {
	return m.publicBaseURL + "/" + key
}

// Apply performs the transition. Work that may complete after the interaction
// is answered goes to tasks.
func (m *Machine) Apply(ctx context.Context, sub Subject, action Action, tasks *Tasks) (*Outcome, error) {
	switch action {
	case ActionApprove:
		return m.approve(ctx, sub, tasks)
	case ActionDeny:
		return m.deny(ctx, sub, tasks)
	default:
		return nil, malformed("action")
	}
}

func (m *Machine) approve(ctx context.Context, sub Subject, tasks *Tasks) (*Outcome, error) {
	obj, body, err := m.pending.Get(ctx, sub.Key)
	if err != nil {
		return nil, m.readError(sub.Key, err)
	}
	submittedAt := models.FormatTimestamp(obj.Uploaded)

	// A pending object left behind by a failed delete must not be approved twice.
	done, err := m.alreadyApproved(ctx, sub.Key, submittedAt)
	if err != nil {
		return nil, err
	}
	if done {
		key := sub.Key
		m.log.Warn("pillow already approved, retrying pending delete", zap.String("key", key))
		tasks.Go("delete pending "+key, func(ctx context.Context) error {
			return m.pending.Delete(ctx, key)
		})
		return nil, newError(ErrSubmissionNotFound, "", errors.New("already approved"))
	}

	meta := maps.Clone(obj.Metadata)
	if meta == nil {
		meta = map[string]string{}
	}
	meta[models.MetaDiscordApproverID] = sub.Actor.ID
	meta[models.MetaSubmittedAt] = submittedAt

	err = m.approved.Put(ctx, sub.Key, bytes.NewReader(body), storage.PutOptions{
		ContentType: obj.ContentType,
		Metadata:    meta,
	})
	if err != nil {
		return nil, newError(ErrStorageFailure, "approved write", err)
	}

	key := sub.Key
	tasks.Go("delete pending "+key, func(ctx context.Context) error {
		return m.pending.Delete(ctx, key)
	})

	url := m.ArtifactURL(key)
	embed := m.decorate(sub, "Approved by ", colorApproved)
	embed.Image = &discordgo.MessageEmbedImage{URL: url}

	m.log.Info("pillow approved",
		zap.String("key", key),
		zap.String("moderator", sub.Actor.ID),
		zap.Int("bytes", len(body)))

	return &Outcome{
		Action:      ActionApprove,
		State:       StateApproved,
		Key:         key,
		ArtifactURL: url,
		Embed:       embed,
		AuditContent: fmt.Sprintf("Approved pillow submission: %s (%s) from <@%s>, approved by <@%s>\n[View Pillow](%s)",
			sub.PillowName, sub.PillowType, sub.SubmitterID, sub.Actor.ID, url),
	}, nil
}

// alreadyApproved reports whether key holds the approval of this exact pending upload.
func (m *Machine) alreadyApproved(ctx context.Context, key, submittedAt string) (bool, error) {
	obj, err := m.approved.Head(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		m.log.Error("approved read failed", zap.String("key", key), zap.Error(err))
		return false, newError(ErrStorageFailure, "approved read", err)
	}
	return obj.Metadata[models.MetaDiscordApproverID] != "" &&
		obj.Metadata[models.MetaSubmittedAt] == submittedAt, nil
}

func (m *Machine) deny(ctx context.Context, sub Subject, tasks *Tasks) (*Outcome, error) {
	if _, err := m.pending.Head(ctx, sub.Key); err != nil {
		return nil, m.readError(sub.Key, err)
	}
	key := sub.Key
	tasks.Go("delete pending "+key, func(ctx context.Context) error {
		return m.pending.Delete(ctx, key)
	})

	embed := m.decorate(sub, "Denied by ", colorDenied)
	embed.Image = nil

	m.log.Info("pillow denied", zap.String("key", key), zap.String("moderator", sub.Actor.ID))

	return &Outcome{
		Action: ActionDeny,
		State:  StateDenied,
		Key:    key,
		Embed:  embed,
		AuditContent: fmt.Sprintf("Denied pillow submission: %s (%s) from <@%s>, denied by <@%s>",
			sub.PillowName, sub.PillowType, sub.SubmitterID, sub.Actor.ID),
	}, nil
}

func (m *Machine) decorate(sub Subject, verdict string, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{}
	if sub.Embed != nil {
		*embed = *sub.Embed
	}
	embed.Color = color
	embed.Timestamp = m.now().UTC().Format(time.RFC3339)
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text:    verdict + sub.Actor.Username,
		IconURL: sub.Actor.AvatarURL,
	}
	return embed
}

func (m *Machine) readError(key string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return newError(ErrSubmissionNotFound, "", err)
	}
	m.log.Error("pending read failed", zap.String("key", key), zap.Error(err))
	return newError(ErrStorageFailure, "pending read", err)
}
