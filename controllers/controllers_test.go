package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/review"
	"github.com/cppla/frypillows/settings"
	"github.com/cppla/frypillows/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func multipartBody(t *testing.T, fields map[string]string, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if payload != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="p.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(payload)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestPillowUploadListAndDownload(t *testing.T) {
	store := storage.NewMemoryStore("pillows")
	pc := NewPillowController(store, 1<<20)
	r := gin.New()
	r.POST("/pillow/upload", pc.Upload)
	r.GET("/pillow/list", pc.List)
	r.GET("/pillow/image/:id", pc.Image)
	r.GET("/pillow/data/:id", pc.Data)
	r.DELETE("/pillow/delete/:id", pc.Delete)

	body, ct := multipartBody(t, map[string]string{
		"discordUserId": "42",
		"pillowName":    "<b>Sunset</b>",
		"pillowType":    "Large",
		"userName":      "lise",
	}, "image/png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/pillow/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pillow/list", nil))
	var items []models.PillowListItem
	if err := json.Unmarshal(decode(t, w).Data, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Key != "42_Large" || items[0].PillowName != "Sunset" {
		t.Fatalf("list: %+v", items)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pillow/image/42_Large", nil))
	if w.Body.String() != "png-bytes" || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("image: %q %q", w.Body.String(), w.Header().Get("Content-Type"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/pillow/delete/42_Large", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pillow/data/42_Large", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("data after delete: %d", w.Code)
	}
}

func TestPillowUploadRejectsUnderscoreType(t *testing.T) {
	pc := NewPillowController(storage.NewMemoryStore("pillows"), 1<<20)
	r := gin.New()
	r.POST("/pillow/upload", pc.Upload)

	body, ct := multipartBody(t, map[string]string{
		"discordUserId": "42",
		"pillowName":    "Sunset",
		"pillowType":    "Extra_Large",
	}, "image/png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/pillow/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest || decode(t, w).Code != 40041 {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
}

func TestPhotoUploadAssignsKey(t *testing.T) {
	store := storage.NewMemoryStore("photos")
	pc := NewPhotoController(store, 1<<20)
	pc.newKey = func() string { return "0b7c2a5e-9f1d-4c55-8a35-1f2d3c4b5a69" }
	r := gin.New()
	r.POST("/photos/upload", pc.Upload)

	body, ct := multipartBody(t, map[string]string{
		"discordUserId": "42",
		"date":          "2024-05-01",
		"userName":      "lise",
	}, "image/jpeg", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/photos/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	obj, err := store.Head(context.Background(), "0b7c2a5e-9f1d-4c55-8a35-1f2d3c4b5a69")
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if meta := models.PhotoMetaFrom(obj.Metadata); meta.Date != "2024-05-01" || meta.SubmittedAt == "" {
		t.Fatalf("meta: %+v", meta)
	}
}

func TestSettingsMerge(t *testing.T) {
	sc := NewSettingsController(settings.NewMemoryStore())
	r := gin.New()
	r.GET("/settings/:guildId", sc.Get)
	r.PATCH("/settings/:guildId", sc.Update)
	r.POST("/settings/:guildId", sc.Update)

	req := httptest.NewRequest(http.MethodPatch, "/settings/g1", strings.NewReader(`{"settings":{"modRoleId":"r1"}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/settings/g1", strings.NewReader(`settings={"pillowChannelId":"c1"}`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("post: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings/g1", nil))
	var got models.GuildSettings
	if err := json.Unmarshal(decode(t, w).Data, &got); err != nil {
		t.Fatal(err)
	}
	if role, _ := got.ModRoleID(); role != "r1" {
		t.Fatalf("modRoleId lost: %v", got)
	}
	if ch, _ := got.PillowChannelID(); ch != "c1" {
		t.Fatalf("pillowChannelId: %v", got)
	}

	req = httptest.NewRequest(http.MethodPatch, "/settings/g1", strings.NewReader(`{"settings":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid patch: %d", w.Code)
	}
}

func commandInteraction(data discordgo.ApplicationCommandInteractionData, channelID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "1200000000000000000",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: channelID,
		Data:      data,
		Member:    &discordgo.Member{User: &discordgo.User{ID: "42", Username: "lise"}},
	}
}

func TestConfigModCommand(t *testing.T) {
	store := settings.NewMemoryStore()
	c := NewCommands(store, storage.NewMemoryStore("pending"), nil, 1<<20, zap.NewNop())
	ctx := context.Background()

	show := discordgo.ApplicationCommandInteractionData{Name: "config", Options: []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "mod", Type: discordgo.ApplicationCommandOptionSubCommand},
	}}
	if resp := c.Handle(ctx, commandInteraction(show, "c1")); resp.Data.Content != "No mod role set" {
		t.Fatalf("show: %q", resp.Data.Content)
	}

	set := discordgo.ApplicationCommandInteractionData{Name: "config", Options: []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "mod", Type: discordgo.ApplicationCommandOptionSubCommand, Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "role", Type: discordgo.ApplicationCommandOptionRole, Value: "r9"},
		}},
	}}
	if resp := c.Handle(ctx, commandInteraction(set, "c1")); !strings.Contains(resp.Data.Content, "<@&r9>") {
		t.Fatalf("set: %q", resp.Data.Content)
	}
	got, _ := store.Get(ctx, "g1")
	if role, _ := got.ModRoleID(); role != "r9" {
		t.Fatalf("modRoleId: %v", got)
	}

	unknown := discordgo.ApplicationCommandInteractionData{Name: "photo"}
	if resp := c.Handle(ctx, commandInteraction(unknown, "c1")); resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatalf("unknown command must answer ephemerally")
	}
}

func TestPillowSubmitCommand(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer cdn.Close()

	ctx := context.Background()
	store := settings.NewMemoryStore()
	store.Merge(ctx, "g1", models.GuildSettings{models.SettingPillowChannelID: "c-pillows"})
	pending := storage.NewMemoryStore("pending")
	c := NewCommands(store, pending, cdn.Client(), 1<<20, zap.NewNop())
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	submit := func(pillowType string) discordgo.ApplicationCommandInteractionData {
		return discordgo.ApplicationCommandInteractionData{
			Name: "pillow",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "submit",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "Sunset"},
					{Name: "type", Type: discordgo.ApplicationCommandOptionString, Value: pillowType},
					{Name: "image", Type: discordgo.ApplicationCommandOptionAttachment, Value: "att-1"},
				},
			}},
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Attachments: map[string]*discordgo.MessageAttachment{
					"att-1": {ID: "att-1", URL: cdn.URL + "/a.png", ContentType: "image/png", Size: 9},
				},
			},
		}
	}

	if resp := c.Handle(ctx, commandInteraction(submit("Large"), "c-other")); !strings.Contains(resp.Data.Content, "<#c-pillows>") {
		t.Fatalf("channel restriction: %q", resp.Data.Content)
	}
	if resp := c.Handle(ctx, commandInteraction(submit("Extra_Large"), "c-pillows")); resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatalf("underscore type must be rejected")
	}

	resp := c.Handle(ctx, commandInteraction(submit("Large"), "c-pillows"))
	if len(resp.Data.Embeds) != 1 {
		t.Fatalf("response: %+v", resp.Data)
	}
	if resp.Data.Embeds[0].Title != "lise's Pillow Submission" {
		t.Fatalf("title: %q", resp.Data.Embeds[0].Title)
	}
	row := resp.Data.Components[0].(discordgo.ActionsRow)
	if id := row.Components[0].(discordgo.Button).CustomID; id != "approve:42_Large" {
		t.Fatalf("approve button: %q", id)
	}

	obj, body, err := pending.Get(ctx, "42_Large")
	if err != nil {
		t.Fatalf("pending Get: %v", err)
	}
	meta := models.PillowMetaFrom(obj.Metadata)
	if string(body) != "png-bytes" || meta.PillowName != "Sunset" || meta.SubmittedAt != "2024-05-01T12:00:00.000Z" {
		t.Fatalf("pending object: %q %+v", body, meta)
	}

	desc, err := review.ExtractDescriptor(&discordgo.Message{Embeds: resp.Data.Embeds}, "42_Large")
	if err != nil || desc.PillowType != "Large" {
		t.Fatalf("embed not reviewable: %+v %v", desc, err)
	}
}

type stubButtons struct{ reply review.Reply }

func (s stubButtons) Handle(context.Context, *discordgo.Interaction) review.Reply { return s.reply }

func TestInteractionController(t *testing.T) {
	ic := NewInteractionController(
		NewCommands(settings.NewMemoryStore(), storage.NewMemoryStore("pending"), nil, 1<<20, zap.NewNop()),
		stubButtons{reply: review.Reply{Accepted: true}},
		zap.NewNop(),
	)
	r := gin.New()
	r.POST("/interactions", ic.Handle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{"id":"1","type":1}`)))
	var pong discordgo.InteractionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &pong); err != nil || pong.Type != discordgo.InteractionResponsePong {
		t.Fatalf("ping: %s", w.Body.String())
	}

	press := `{"id":"2","type":3,"guild_id":"g1","data":{"custom_id":"approve:42_Large","component_type":2}}`
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(press)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("accepted press: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("garbage body: %d", w.Code)
	}
}
