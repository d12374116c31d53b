package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/keeeal/quoth/server/quoth/domain"
)

func TestNotBot(t *testing.T) {
	assert.True(t, NotBot()(domain.Message{Author: domain.Author{Name: "alice"}}))
	assert.False(t, NotBot()(domain.Message{Author: domain.Author{Name: "beep", Bot: true}}))
}

func TestNotAuthor(t *testing.T) {
	pred := NotAuthor("Mallory", " eve ")
	assert.True(t, pred(domain.Message{Author: domain.Author{Name: "alice"}}))
	assert.False(t, pred(domain.Message{Author: domain.Author{Name: "mallory"}}))
	assert.False(t, pred(domain.Message{Author: domain.Author{Name: "Eve"}}))
}

func TestHasText(t *testing.T) {
	assert.True(t, HasText("")(domain.Message{Content: "anything"}))
	assert.False(t, HasText("")(domain.Message{Content: "   "}))
	assert.True(t, HasText("CATS")(domain.Message{Content: "I like cats."}))
	assert.False(t, HasText("dogs")(domain.Message{Content: "I like cats."}))
}

func TestHasImageAndVideo(t *testing.T) {
	image := domain.Message{Attachments: []domain.Attachment{{Filename: "photo.JPG"}}}
	video := domain.Message{Attachments: []domain.Attachment{{Filename: "clip.mp4"}}}
	doc := domain.Message{Attachments: []domain.Attachment{{Filename: "notes.pdf"}}}

	assert.True(t, HasImage()(image))
	assert.False(t, HasImage()(video))
	assert.True(t, HasVideo()(video))
	assert.False(t, HasVideo()(image))
	assert.False(t, HasImage()(doc))
	assert.False(t, HasVideo()(doc))
}

func TestHasTag(t *testing.T) {
	tagged := domain.Message{Mentions: []int64{100, 200}}
	plain := domain.Message{}

	assert.True(t, HasTag(0)(tagged))
	assert.False(t, HasTag(0)(plain))
	assert.True(t, HasTag(200)(tagged))
	assert.False(t, HasTag(300)(tagged))
}

func TestOnDayAndOnYear(t *testing.T) {
	// 2021-03-02 was a Tuesday
	msg := domain.Message{CreatedAt: time.Date(2021, time.March, 2, 9, 0, 0, 0, time.UTC)}

	assert.True(t, OnDay(time.Tuesday)(msg))
	assert.False(t, OnDay(time.Friday)(msg))
	assert.True(t, OnYear(2021)(msg))
	assert.False(t, OnYear(2020)(msg))
}

func TestHasURL(t *testing.T) {
	msg := domain.Message{Content: "look at https://example.com/cats now"}

	assert.True(t, HasURL("")(msg))
	assert.True(t, HasURL("example")(msg))
	// matching runs against the URL with punctuation stripped
	assert.True(t, HasURL("examplecom")(msg))
	assert.True(t, HasURL("examplecomcats")(msg))
	assert.False(t, HasURL("youtube")(msg))
	assert.False(t, HasURL("")(domain.Message{Content: "no links here"}))
}

func TestAllComposes(t *testing.T) {
	msg := domain.Message{
		Content: "cats",
		Author:  domain.Author{Name: "alice"},
	}

	assert.True(t, All(NotBot(), HasText("cats"))(msg))
	assert.False(t, All(NotBot(), HasText("dogs"))(msg))
	assert.True(t, All()(msg))
	assert.True(t, All(nil, NotBot())(msg))
}
