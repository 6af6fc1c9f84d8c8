package handlers

import (
	"encoding/json"
	"sync"

	"humorize/auth"
	"humorize/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog/log"
)

const (
	EventPhotoAdded     = "photo_added"
	EventPhotoDeleted   = "photo_deleted"
	EventGalleryDeleted = "gallery_deleted"
)

type FeedEvent struct {
	Type      string        `json:"type"`
	GalleryID string        `json:"gallery_id"`
	Photo     *models.Photo `json:"photo,omitempty"`
	PhotoID   string        `json:"photo_id,omitempty"`
}

// SendSocketFunc returns true if data was successfully sent
type SendSocketFunc func([]byte) bool
type ConnectedClient struct {
	fun SendSocketFunc
}

// ConnectedClients is needed as a gallery has many viewers, some connected more than once
type ConnectedClients []*ConnectedClient

// Feed pushes gallery changes to everyone watching the gallery
type Feed struct {
	galleries cmap.ConcurrentMap[string, ConnectedClients]
}

func NewFeed() *Feed {
	return &Feed{galleries: cmap.New[ConnectedClients]()}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (f *Feed) addClient(id string, c *ConnectedClient) {
	f.galleries.Upsert(id, ConnectedClients{c}, func(exist bool, valueInMap, newValue ConnectedClients) ConnectedClients {
		if exist {
			return append(valueInMap, c)
		}
		return newValue
	})
}

func (f *Feed) removeClient(id string, c *ConnectedClient) {
	f.galleries.Upsert(id, ConnectedClients{}, func(exist bool, valueInMap, newValue ConnectedClients) ConnectedClients {
		if !exist {
			return newValue
		}
		for _, oc := range valueInMap {
			if oc == c {
				continue
			}
			newValue = append(newValue, oc)
		}
		return newValue
	})
	f.galleries.RemoveCb(id, func(key string, v ConnectedClients, exists bool) bool {
		return exists && len(v) == 0
	})
}

// Subscribers is the number of open connections for a gallery
func (f *Feed) Subscribers(galleryID string) int {
	clients, _ := f.galleries.Get(galleryID)
	return len(clients)
}

// Publish sends ev to the watchers of its gallery, returns how many received it
func (f *Feed) Publish(ev FeedEvent) int {
	if f == nil {
		return 0
	}
	clients, ok := f.galleries.Get(ev.GalleryID)
	if !ok || len(clients) == 0 {
		return 0
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("feed event marshal failed")
		return 0
	}
	sent := 0
	for _, client := range clients {
		if client.fun(data) {
			sent++
		}
	}
	return sent
}

// GalleryLive streams FeedEvents of the active gallery over a websocket
func (h *Handlers) GalleryLive(c *gin.Context, actor *auth.Actor) {
	g := h.activeGallery(c, actor)
	if g == nil {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Setup client
	var writeMutex sync.Mutex
	isConnected := true
	client := ConnectedClient{}
	client.fun = func(data []byte) bool {
		writeMutex.Lock()
		defer writeMutex.Unlock()
		if !isConnected {
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			isConnected = false
			return false
		}
		return true
	}
	h.Feed.addClient(g.ID, &client)
	defer h.Feed.removeClient(g.ID, &client)

	// Main read cycle, only pings are expected
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			writeMutex.Lock()
			isConnected = false
			writeMutex.Unlock()
			break
		}
		if string(message) == "ping" {
			client.fun([]byte("pong"))
		}
	}
}
