package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/whisperwall/internal/identity"
	"github.com/sujalbistaa/whisperwall/internal/match"
	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/moderation"
	"github.com/sujalbistaa/whisperwall/internal/store"
	"github.com/sujalbistaa/whisperwall/internal/ws"
)

// --- Configuration Constants ---
const (
	maxTextLength  = 500
	adminListLimit = 100
	rateLimitRPS   = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst = 1
)

// --- Structs for request binding ---
type CreateWhisperInput struct {
	Mood string `json:"mood" binding:"required,max=40"`
	Text string `json:"text" binding:"required,min=1,max=500"`
	Room string `json:"room"` // coerced to the closed room set, never rejected
}
type CreateReplyInput struct {
	Text string `json:"text" binding:"required,min=1,max=500"`
}

// --- WebSocket Payloads ---

// WsMessage defines the JSON structure pushed to feed listeners.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// --- Rate Limiter ---
type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		mu:       sync.RWMutex{},
		rps:      r,
		burst:    b,
	}
}
func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}

// --- Handlers ---
type Env struct {
	Store    store.Store
	Matcher  *match.Engine
	Resolver *identity.Resolver
	Hub      *ws.Hub
}

// MintKey hands out a fresh access key. The Identity record itself is
// created lazily on the key's first authenticated request.
func (e *Env) MintKey(c *gin.Context) {
	key, err := identity.MintKey()
	if err != nil {
		log.Printf("Error minting key: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mint key"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// Me returns the caller's identity (points, ban flag).
func (e *Env) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}

func (e *Env) CreateWhisper(c *gin.Context) {
	var input CreateWhisperInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if !moderation.IsTextAdmissible(input.Text) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Whisper contains blocked content"})
		return
	}

	ident := currentIdentity(c)
	whisper := models.Whisper{
		Mood:      input.Mood,
		Text:      input.Text,
		Room:      input.Room, // store applies room coercion
		AuthorKey: ident.Key,
	}
	if err := e.Store.CreateWhisper(c.Request.Context(), &whisper); err != nil {
		log.Printf("Error creating whisper: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create whisper"})
		return
	}
	if err := e.Store.RewardIdentity(c.Request.Context(), ident.Key, identity.WhisperReward); err != nil {
		log.Printf("Error rewarding identity %s: %v", ident.Key, err)
	}

	e.broadcastMessage(WsMessage{Type: "new_whisper", Data: whisper})

	c.JSON(http.StatusCreated, whisper)
}

// GetMatch surfaces one whisper for the caller to reply to. An empty
// match is a normal state and comes back as a null match, not an error.
func (e *Env) GetMatch(c *gin.Context) {
	room := c.DefaultQuery("room", models.RoomAll)
	ident := currentIdentity(c)

	whisper, err := e.Matcher.SelectWhisper(c.Request.Context(), ident.Key, room)
	if err != nil {
		log.Printf("Error selecting whisper: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find a match"})
		return
	}
	if whisper == nil {
		c.JSON(http.StatusOK, gin.H{"match": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": whisper})
}

func (e *Env) CreateReply(c *gin.Context) {
	whisperID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid whisper ID"})
		return
	}
	var input CreateReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if !moderation.IsTextAdmissible(input.Text) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reply contains blocked content"})
		return
	}

	ident := currentIdentity(c)
	reply := models.Reply{
		WhisperID:    uint(whisperID),
		Text:         input.Text,
		ResponderKey: ident.Key,
	}
	if err := e.Store.CreateReply(c.Request.Context(), &reply); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Whisper not found"})
			return
		}
		log.Printf("Error creating reply: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create reply"})
		return
	}
	if err := e.Store.RewardIdentity(c.Request.Context(), ident.Key, identity.ReplyReward); err != nil {
		log.Printf("Error rewarding identity %s: %v", ident.Key, err)
	}

	e.broadcastMessage(WsMessage{Type: "new_reply", Data: reply})

	c.JSON(http.StatusCreated, reply)
}

func (e *Env) ListReplies(c *gin.Context) {
	whisperID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid whisper ID"})
		return
	}
	replies, err := e.Store.ListReplies(c.Request.Context(), uint(whisperID))
	if err != nil {
		log.Printf("Error fetching replies: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch replies"})
		return
	}
	c.JSON(http.StatusOK, replies)
}

func (e *Env) ReportWhisper(c *gin.Context) {
	e.report(c, e.Store.ReportWhisper, "Whisper")
}

func (e *Env) ReportReply(c *gin.Context) {
	e.report(c, e.Store.ReportReply, "Reply")
}

func (e *Env) report(c *gin.Context, apply func(ctx context.Context, id uint) error, kind string) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + kind + " ID"})
		return
	}
	if err := apply(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": kind + " not found"})
			return
		}
		log.Printf("Error reporting %s %d: %v", kind, id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report recorded"})
}

// --- Admin Handlers ---

func (e *Env) AdminListWhispers(c *gin.Context) {
	whispers, err := e.Store.ListRecentWhispers(c.Request.Context(), adminListLimit)
	if err != nil {
		log.Printf("Error fetching whispers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch whispers"})
		return
	}
	c.JSON(http.StatusOK, whispers)
}

func (e *Env) AdminBanIdentity(c *gin.Context) {
	key := c.Param("key")
	if err := e.Store.BanIdentity(c.Request.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Identity not found"})
			return
		}
		log.Printf("Error banning identity: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ban identity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Identity banned"})
}

func (e *Env) AdminDeleteWhisper(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid whisper ID"})
		return
	}
	if err := e.Store.DeleteWhisper(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Whisper not found"})
			return
		}
		log.Printf("Error deleting whisper: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete whisper"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Whisper deleted"})
}

// broadcastMessage pushes a feed event to websocket listeners.
func (e *Env) broadcastMessage(msg WsMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
