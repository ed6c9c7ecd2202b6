package fixture

import (
	"database/sql"
	"fmt"

	"github.com/Napageneral/imessage-max/internal/migrate"
)

// Store dates used by the seeds (nanoseconds since 2001-01-01).
const (
	DateHello    int64 = 789100000000000000
	DateAsk      int64 = 789200000000000000
	DateLateSure int64 = 789400000000000000
	DateMeeting  int64 = 789500000000000000
	DateLink     int64 = 789600000000000000
)

// Well-known handles in the seeds.
const (
	HandleJohn  = "+19175551234"
	HandleJane  = "+15625559876"
	HandleEmail = "test@example.com"
)

// Conversation seeds a direct chat with questions, replies and a reaction:
//
//	chat1 (iMessage;+;chat123): +19175551234
//	chat2 (iMessage;+;chat456, "Test Group"): +19175551234, +15625559876
//
// Messages 4 and 8 are unanswered questions from me; 6 is answered within
// 100 seconds.
func Conversation(b *Builder) {
	john := b.Handle(HandleJohn)
	jane := b.Handle(HandleJane)
	b.Handle(HandleEmail)

	direct := b.Chat("iMessage;+;chat123", "", john)
	b.Chat("iMessage;+;chat456", "Test Group", john, jane)

	b.Message(direct, Message{GUID: "msg1", Text: "Hello world", HandleID: john, Date: DateHello})
	b.Message(direct, Message{GUID: "msg2", Text: "How are you?", FromMe: true, Date: DateHello + 100_000_000_000})
	b.Message(direct, Message{GUID: "msg3", NullText: true, HandleID: john, Date: DateHello + 200_000_000_000, AssocType: 2000})
	b.Message(direct, Message{GUID: "msg4", Text: "Can you help me with this?", FromMe: true, Date: DateAsk})
	b.Message(direct, Message{GUID: "msg5", Text: "Sure, what do you need?", HandleID: john, Date: DateLateSure})
	b.Message(direct, Message{GUID: "msg6", Text: "What time is the meeting?", FromMe: true, Date: DateMeeting})
	b.Message(direct, Message{GUID: "msg7", Text: "It is at 3pm", HandleID: john, Date: DateMeeting + 100_000_000_000})
	b.Message(direct, Message{GUID: "msg8", Text: "Check out this link and let me know", FromMe: true, Date: DateLink})
}

// Attachments seeds five messages each carrying one attachment of a
// different kind, spread over chat1 and chat2.
func Attachments(b *Builder) {
	john := b.Handle(HandleJohn)
	jane := b.Handle(HandleJane)

	direct := b.Chat("iMessage;+;chat123", "", john)
	group := b.Chat("iMessage;+;chat456", "Test Group", john, jane)

	type row struct {
		chat   int64
		handle int64
		text   string
		att    Attachment
	}
	rows := []row{
		{direct, john, "Check out this photo!", Attachment{GUID: "att1", Filename: "~/Library/Messages/Attachments/IMG_001.jpg", MimeType: "image/jpeg", UTI: "public.jpeg", TotalBytes: 2458624, TransferName: "IMG_001.jpg"}},
		{direct, 0, "Here is the video", Attachment{GUID: "att2", Filename: "~/Library/Messages/Attachments/video.mp4", MimeType: "video/mp4", UTI: "public.movie", TotalBytes: 15728640, TransferName: "video.mp4"}},
		{direct, john, "Document attached", Attachment{GUID: "att3", Filename: "~/Library/Messages/Attachments/document.pdf", MimeType: "application/pdf", UTI: "com.adobe.pdf", TotalBytes: 1048576, TransferName: "document.pdf"}},
		{group, jane, "Another image", Attachment{GUID: "att4", Filename: "~/Library/Messages/Attachments/photo.png", MimeType: "image/png", UTI: "public.png", TotalBytes: 524288, TransferName: "photo.png"}},
		{group, 0, "Audio message", Attachment{GUID: "att5", Filename: "~/Library/Messages/Attachments/voice.m4a", MimeType: "audio/x-m4a", UTI: "public.audio", TotalBytes: 262144, TransferName: "voice.m4a"}},
	}
	for i, r := range rows {
		msgID := b.Message(r.chat, Message{
			GUID:     fmt.Sprintf("att-msg%d", i+1),
			Text:     r.text,
			HandleID: r.handle,
			FromMe:   r.handle == 0,
			Date:     DateHello + int64(i)*100_000_000_000,
		})
		b.Attachment(msgID, r.att)
	}
}

// Demo writes a chat.db at path containing both seeds.
func Demo(path string) error {
	b, err := Create(path)
	if err != nil {
		return err
	}
	Conversation(b)
	Attachments(b)
	return b.Close()
}

// Contact is an AddressBook record.
type Contact struct {
	First, Last string
	Phones      []string
	Emails      []string
}

// AddressBook writes an AddressBook-v22.abcddb-shaped database at path.
func AddressBook(path string, contacts ...Contact) error {
	if _, err := migrate.MigrateAddressBook(path); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open fixture: %w", err)
	}
	defer db.Close()

	for i, c := range contacts {
		pk := int64(i + 1)
		if _, err := db.Exec("INSERT INTO ZABCDRECORD (Z_PK, ZFIRSTNAME, ZLASTNAME) VALUES (?, ?, ?)",
			pk, nullable(c.First), nullable(c.Last)); err != nil {
			return fmt.Errorf("fixture: %w", err)
		}
		for _, p := range c.Phones {
			if _, err := db.Exec("INSERT INTO ZABCDPHONENUMBER (ZOWNER, ZFULLNUMBER) VALUES (?, ?)", pk, p); err != nil {
				return fmt.Errorf("fixture: %w", err)
			}
		}
		for _, e := range c.Emails {
			if _, err := db.Exec("INSERT INTO ZABCDEMAILADDRESS (ZOWNER, ZADDRESS) VALUES (?, ?)", pk, e); err != nil {
				return fmt.Errorf("fixture: %w", err)
			}
		}
	}
	return nil
}
