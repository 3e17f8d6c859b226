package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const (
	commandHistoryLimit int = 20
	tracksHistoryLimit  int = 12
)

type Storage struct {
	mu sync.Mutex
	ds *datastore.DataStore
}

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Param       string    `json:"param"`
	Datetime    time.Time `json:"datetime"`
}

type TrackHistoryRecord struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Source   string    `json:"source"`
	PlayedAt time.Time `json:"played_at"`
}

type Record struct {
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
	TracksHistoryList   []TrackHistoryRecord   `json:"tracks_history"`
	CommandHashes       map[string]string      `json:"command_hashes"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// getOrCreateGuildRecord decodes the guild record, which the datastore may
// hold either as *Record or as generic JSON after a reload.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		newRecord := &Record{
			CommandsHistoryList: []CommandHistoryRecord{},
			TracksHistoryList:   []TrackHistoryRecord{},
			CommandHashes:       map[string]string{},
		}
		s.ds.Add(guildID, newRecord)
		return newRecord, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}

	var record Record
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("error unmarshalling to *Record: %w", err)
	}
	if record.CommandHashes == nil {
		record.CommandHashes = map[string]string{}
	}
	return &record, nil
}

// AppendCommandToHistory keeps the last commandHistoryLimit commands of a guild.
func (s *Storage) AppendCommandToHistory(guildID string, command CommandHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.CommandsHistoryList = appendCapped(record.CommandsHistoryList, command, commandHistoryLimit)
	s.ds.Add(guildID, record)
	return nil
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}

// AppendTrackToHistory keeps the last tracksHistoryLimit played tracks of a guild.
func (s *Storage) AppendTrackToHistory(guildID string, track TrackHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.TracksHistoryList = appendCapped(record.TracksHistoryList, track, tracksHistoryLimit)
	s.ds.Add(guildID, record)
	return nil
}

func (s *Storage) FetchTrackHistory(guildID string) ([]TrackHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.TracksHistoryList, nil
}

// CommandHashes returns the hashes of the slash commands last registered in a guild.
func (s *Storage) CommandHashes(guildID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandHashes, nil
}

func (s *Storage) SetCommandHashes(guildID string, hashes map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.CommandHashes = hashes
	s.ds.Add(guildID, record)
	return nil
}

func appendCapped[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}
