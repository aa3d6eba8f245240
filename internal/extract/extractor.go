// Package extract projects the platform's embedded page data into ResolvedMetadata.
// Everything here is a pure function of its inputs.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/famomatic/ttaudio/internal/types"
)

type pageData struct {
	ItemModule map[string]item `json:"ItemModule"`
	ItemList   struct {
		Video idList `json:"video"`
	} `json:"ItemList"`
}

type item struct {
	ID     text       `json:"id"`
	Desc   text       `json:"desc"`
	Author authorText `json:"author"`
	Video  struct {
		PlayAddr text `json:"playAddr"`
		Cover    text `json:"cover"`
		Duration text `json:"duration"`
	} `json:"video"`
	Music struct {
		PlayURL text `json:"playUrl"`
	} `json:"music"`
}

// text accepts any JSON scalar and keeps its textual form. Objects, arrays and
// null leave it empty.
type text struct {
	Value string
	Set   bool
}

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '{' || b[0] == '[' || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t.Value, t.Set = s, true
		return nil
	}
	t.Value, t.Set = string(b), true
	return nil
}

// authorText is either the handle itself or an author object carrying uniqueId.
type authorText struct {
	text
}

func (a *authorText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			UniqueID text `json:"uniqueId"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		a.text = obj.UniqueID
		return nil
	}
	return a.text.UnmarshalJSON(b)
}

// idList is ItemList.video: either a bare array of ids or an object with a list.
type idList []string

func (l *idList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			List []string `json:"list"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*l = obj.List
		return nil
	}
	var ids []text
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Value)
	}
	*l = out
	return nil
}

// Extract locates the page data in body and projects the record of the page's
// current video.
//
// The current video is the first entry of ItemList.video, not the id the page
// was requested for. The platform may canonicalize ids, so the literal
// behaviour is kept; callers compare VideoID against the requested id.
func Extract(pageURL, body string) (*types.ResolvedMetadata, error) {
	island, err := LocateIsland(body)
	if err != nil {
		return nil, &types.Error{
			Kind:     types.KindStructureChanged,
			Severity: types.SeveritySuspicious,
			Message:  "no TikTok video data found in page",
			Err:      err,
		}
	}
	return ExtractJSON(pageURL, island)
}

// ExtractJSON projects already located page data.
func ExtractJSON(pageURL string, data []byte) (*types.ResolvedMetadata, error) {
	var page pageData
	if err := json.Unmarshal(data, &page); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &types.Error{
				Kind:     types.KindStructureChanged,
				Severity: types.SeveritySuspicious,
				Message:  "unexpected TikTok page data layout",
				Err:      err,
			}
		}
		return nil, &types.Error{
			Kind:     types.KindStructureChanged,
			Severity: types.SeveritySuspicious,
			Message:  "page data is not valid JSON",
			Err:      err,
		}
	}
	if page.ItemModule == nil {
		return nil, types.NewStructureError("no TikTok video data found (ItemModule missing)")
	}
	if len(page.ItemList.Video) == 0 || page.ItemList.Video[0] == "" {
		return nil, types.NewStructureError("no TikTok video data found (ItemList.video empty)")
	}

	currentID := page.ItemList.Video[0]
	record, ok := page.ItemModule[currentID]
	if !ok {
		return nil, types.NewStructureError(fmt.Sprintf("no TikTok video data found (ItemModule[%s] missing)", currentID))
	}
	return project(pageURL, record)
}

func project(pageURL string, record item) (*types.ResolvedMetadata, error) {
	duration, err := parseDuration(record.Video.Duration)
	if err != nil {
		return nil, types.NewFieldError("video.duration", err)
	}
	if !record.Music.PlayURL.Set || record.Music.PlayURL.Value == "" {
		return nil, types.NewFieldError("music.playUrl", errors.New("missing"))
	}

	return &types.ResolvedMetadata{
		PageURL:         pageURL,
		VideoID:         record.ID.Value,
		MuxedVideoURL:   record.Video.PlayAddr.Value,
		DirectAudioURL:  record.Music.PlayURL.Value,
		CoverURL:        record.Video.Cover.Value,
		Title:           record.Desc.Value,
		DurationSeconds: duration,
		AuthorHandle:    record.Author.Value,
	}, nil
}

func parseDuration(t text) (int, error) {
	if !t.Set {
		return 0, errors.New("missing")
	}
	n, err := strconv.Atoi(strings.TrimSpace(t.Value))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative duration %d", n)
	}
	return n, nil
}
