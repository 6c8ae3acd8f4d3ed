package review

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/cppla/frypillows/models"
)

// Claimer fences concurrent decisions on the same submission.
type Claimer interface {
	// Claim returns an owner token, or "" when the key is already claimed.
	Claim(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

// Recorder persists decisions to the review log.
type Recorder interface {
	Record(ctx context.Context, rec *models.ReviewRecord) error
}

// Options tunes a Service.
type Options struct {
	TaskTimeout time.Duration
	ClaimTTL    time.Duration
}

// Reply is what the HTTP layer answers the interaction webhook with.
// Accepted means the response was already sent through the REST callback.
type Reply struct {
	Accepted bool
	Content  string
	Err      error
}

func ephemeral(err error) Reply {
	return Reply{Content: UserMessage(err), Err: err}
}

// Response renders an unaccepted reply as an ephemeral channel message.
func (r Reply) Response() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: r.Content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// Service handles approve/deny button presses end to end.
type Service struct {
	gate     *Gate
	machine  *Machine
	seq      *Sequencer
	claims   Claimer
	recorder Recorder
	log      *zap.Logger
	opts     Options
}

func NewService(gate *Gate, machine *Machine, seq *Sequencer, claims Claimer, recorder Recorder, log *zap.Logger, opts Options) *Service {
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 30 * time.Second
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = time.Minute
	}
	return &Service{
		gate:     gate,
		machine:  machine,
		seq:      seq,
		claims:   claims,
		recorder: recorder,
		log:      log,
		opts:     opts,
	}
}

// Handle processes one button interaction. It returns once every deferred
// task scheduled for it has finished.
func (s *Service) Handle(ctx context.Context, i *discordgo.Interaction) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("review handler panic", zap.Any("panic", r), zap.String("interaction", i.ID))
			reply = ephemeral(errors.New("internal error"))
		}
	}()

	if i.Type != discordgo.InteractionMessageComponent {
		return ephemeral(malformed("action"))
	}
	data := i.MessageComponentData()
	if data.ComponentType != discordgo.ButtonComponent {
		return ephemeral(malformed("action"))
	}
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return ephemeral(newError(ErrForbidden, "", nil))
	}

	if err := s.gate.Authorize(ctx, i.GuildID, i.Member.Roles); err != nil {
		if !errors.Is(err, ErrForbidden) {
			s.log.Warn("review gate", zap.String("guild", i.GuildID), zap.Error(err))
		}
		return ephemeral(err)
	}

	action, ref := ParseCustomID(data.CustomID)
	if !action.Valid() {
		return ephemeral(malformed("action"))
	}
	desc, err := ExtractDescriptor(i.Message, ref)
	if err != nil {
		s.log.Warn("unreadable moderation message", zap.String("message", messageID(i)), zap.Error(err))
		return ephemeral(err)
	}

	token, err := s.claims.Claim(ctx, desc.Key, s.opts.ClaimTTL)
	if err != nil {
		s.log.Warn("review claim unavailable, continuing", zap.String("key", desc.Key), zap.Error(err))
	} else if token == "" {
		return ephemeral(newError(ErrSubmissionNotFound, "", errors.New("decision in progress")))
	}

	tasks := NewTasks(ctx, s.opts.TaskTimeout, s.log)
	defer func() {
		tasks.Wait()
		if err := s.claims.Release(context.WithoutCancel(ctx), desc.Key, token); err != nil {
			s.log.Warn("review claim release failed", zap.String("key", desc.Key), zap.Error(err))
		}
	}()

	user := i.Member.User
	actor := Actor{ID: user.ID, Username: user.Username}
	if user.Avatar != "" {
		actor.AvatarURL = user.AvatarURL("")
	}
	out, err := s.machine.Apply(ctx, Subject{
		Descriptor: desc,
		Actor:      actor,
		Embed:      i.Message.Embeds[0],
	}, action, tasks)
	if err != nil {
		return ephemeral(err)
	}

	rec := &models.ReviewRecord{
		GuildID:     i.GuildID,
		ArtifactKey: out.Key,
		Action:      string(out.Action),
		ModeratorID: actor.ID,
		SubmitterID: desc.SubmitterID,
		PillowName:  desc.PillowName,
		PillowType:  desc.PillowType,
	}
	if s.recorder != nil {
		tasks.Go("review log "+out.Key, func(ctx context.Context) error {
			return s.recorder.Record(ctx, rec)
		})
	}

	if _, err := s.seq.Deliver(ctx, i, out); err != nil {
		return ephemeral(err)
	}
	return Reply{Accepted: true}
}

func messageID(i *discordgo.Interaction) string {
	if i.Message == nil {
		return ""
	}
	return i.Message.ID
}
