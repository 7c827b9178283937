package accessor

import (
	"database/sql"
	"time"

	"github.com/gplg/logstore/internal/errs"
	"github.com/gplg/logstore/internal/record"
	"github.com/gplg/logstore/internal/stringpool"
)

// ticksPerSecond is the number of 100-nanosecond ticks per second, the
// unit the on-disk timestamp columns use (matching the wire format's
// documented UTC-ticks-plus-offset-ticks encoding).
const ticksPerSecond = 10_000_000

// epochToUnixSeconds is the number of seconds from the tick epoch
// (0001-01-01 UTC) to the Unix epoch.
const epochToUnixSeconds = 62_135_596_800

func ticksFromTime(t time.Time) (utcTicks, offsetTicks int64) {
	utcTicks = (t.Unix()+epochToUnixSeconds)*ticksPerSecond + int64(t.Nanosecond())/100
	_, offsetSec := t.Zone()
	offsetTicks = int64(offsetSec) * ticksPerSecond
	return
}

func timeFromTicks(utcTicks, offsetTicks int64) time.Time {
	utc := time.Unix(utcTicks/ticksPerSecond-epochToUnixSeconds, (utcTicks%ticksPerSecond)*100)
	loc := time.FixedZone("", int(offsetTicks/ticksPerSecond))
	return utc.In(loc)
}

// base holds everything shared by the Recording and Analysis variants:
// the connection, the four name dictionaries' cached ids, the tag
// cache, and the in-memory [oldest, newest] range. It is not safe for
// concurrent use; the façade's single mutex is what actually makes it
// safe in practice.
type base struct {
	db *sql.DB

	analysis bool

	strings     stringpool.Pool
	processIDs  stringpool.NameIDCache
	appIDs      stringpool.NameIDCache
	writerIDs   stringpool.NameIDCache
	levelIDs    stringpool.NameIDCache
	tagIDs      stringpool.NameIDCache
	oldestID    int64
	newestID    int64
}

func newBase(db *sql.DB) *base {
	return &base{db: db, oldestID: -1, newestID: -1}
}

func (b *base) DB() *sql.DB { return b.db }

func (b *base) OldestID() int64 { return b.oldestID }
func (b *base) NewestID() int64 { return b.newestID }

func (b *base) Count() int64 {
	if b.oldestID < 0 {
		return 0
	}
	return b.newestID - b.oldestID + 1
}

func (b *base) Close() error {
	if err := b.db.Close(); err != nil {
		return errs.New("close", errs.KindIO, err)
	}
	return nil
}

func (b *base) loadRange() error {
	var oldest, newest sql.NullInt64
	if err := b.db.QueryRow("SELECT MIN(id), MAX(id) FROM messages").Scan(&oldest, &newest); err != nil {
		return errs.New("open", errs.KindIO, err)
	}
	if !oldest.Valid {
		b.oldestID, b.newestID = -1, -1
		return nil
	}
	b.oldestID, b.newestID = oldest.Int64, newest.Int64
	return nil
}

func (b *base) cacheFor(kind NameKind) *stringpool.NameIDCache {
	switch kind {
	case NameKindProcess:
		return &b.processIDs
	case NameKindApplication:
		return &b.appIDs
	case NameKindWriter:
		return &b.writerIDs
	case NameKindLevel:
		return &b.levelIDs
	default:
		return &b.tagIDs
	}
}

// addName returns the id of name in the given dictionary table,
// inserting it if absent. The lookup-or-insert happens in one
// round trip via ON CONFLICT ... DO UPDATE ... RETURNING, and the
// result is cached so subsequent writes of the same name never touch
// the database again until a clear-all resets the cache.
func (b *base) addName(q querier, kind NameKind, name string) (int64, error) {
	name = b.strings.Intern(name)
	cache := b.cacheFor(kind)
	if id, ok := cache.Lookup(name); ok {
		return id, nil
	}
	var id int64
	stmt := `INSERT INTO ` + kind.table() + `(name) VALUES (?)
		ON CONFLICT(name) DO UPDATE SET name = excluded.name
		RETURNING id`
	if err := q.QueryRow(stmt, name).Scan(&id); err != nil {
		return 0, errs.New("write", errs.KindIO, err)
	}
	cache.Store(name, id)
	return id, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting addName run
// inside or outside an explicit transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (b *base) resetCaches() {
	b.strings.Reset()
	b.processIDs.Reset()
	b.appIDs.Reset()
	b.writerIDs.Reset()
	b.levelIDs.Reset()
	b.tagIDs.Reset()
}

func (b *base) write(msgs []record.Message) (int64, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return 0, errs.New("write", errs.KindIO, err)
	}
	defer tx.Rollback()

	insert := `INSERT INTO messages
		(id, timestamp, timezone_offset, high_precision_timestamp, lost_message_count,
		 process_id, process_name_id, application_name_id, writer_name_id, level_name_id,
		 has_tags, text) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	if b.analysis {
		insert = `INSERT INTO messages
			(id, timestamp, timezone_offset, high_precision_timestamp, lost_message_count,
			 process_id, process_name_id, application_name_id, writer_name_id, level_name_id,
			 has_tags, tag_count, text) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return 0, errs.New("write", errs.KindIO, err)
	}
	defer stmt.Close()

	nextID := b.newestID + 1
	firstID := nextID

	for i := range msgs {
		m := &msgs[i]
		processID, err := b.addName(tx, NameKindProcess, m.ProcessName)
		if err != nil {
			return 0, err
		}
		appID, err := b.addName(tx, NameKindApplication, m.ApplicationName)
		if err != nil {
			return 0, err
		}
		writerID, err := b.addName(tx, NameKindWriter, m.LogWriterName)
		if err != nil {
			return 0, err
		}
		levelID, err := b.addName(tx, NameKindLevel, m.LogLevelName)
		if err != nil {
			return 0, err
		}

		utcTicks, offsetTicks := ticksFromTime(m.Timestamp)
		m.Id = nextID
		m.Tags = dedupeTags(m.Tags)
		hasTags := len(m.Tags) > 0

		var execErr error
		if b.analysis {
			_, execErr = stmt.Exec(m.Id, utcTicks, offsetTicks, m.HighPrecisionTimestamp,
				m.LostMessageCount, m.ProcessId, processID, appID, writerID, levelID,
				boolToInt(hasTags), len(m.Tags), m.Text)
		} else {
			_, execErr = stmt.Exec(m.Id, utcTicks, offsetTicks, m.HighPrecisionTimestamp,
				m.LostMessageCount, m.ProcessId, processID, appID, writerID, levelID,
				boolToInt(hasTags), m.Text)
		}
		if execErr != nil {
			return 0, errs.New("write", errs.KindIO, execErr)
		}

		for _, tag := range m.Tags {
			tagID, err := b.addName(tx, NameKindTag, tag)
			if err != nil {
				return 0, err
			}
			if _, err := tx.Exec(`INSERT OR IGNORE INTO message_tags(message_id, tag_id) VALUES (?,?)`,
				m.Id, tagID); err != nil {
				return 0, errs.New("write", errs.KindIO, err)
			}
		}

		nextID++
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.New("write", errs.KindIO, err)
	}

	if b.oldestID < 0 {
		b.oldestID = firstID
	}
	b.newestID = nextID - 1
	return firstID, nil
}

func (b *base) readFunc(fromID int64, count int, fn func(record.Message) bool) error {
	if count < 0 {
		return errs.New("read", errs.KindArgumentOutOfRange, nil)
	}
	if count == 0 {
		return nil
	}
	if b.oldestID < 0 || fromID < b.oldestID || fromID > b.newestID {
		return errs.New("read", errs.KindArgumentOutOfRange, nil)
	}

	toID := fromID + int64(count) - 1
	if toID > b.newestID {
		toID = b.newestID
	}

	rows, err := b.db.Query(`
		SELECT m.id, m.timestamp, m.timezone_offset, m.high_precision_timestamp,
		       m.lost_message_count, m.process_id, p.name, a.name, w.name, l.name,
		       m.has_tags, m.text
		FROM messages m
		JOIN processes p ON p.id = m.process_name_id
		JOIN applications a ON a.id = m.application_name_id
		JOIN writers w ON w.id = m.writer_name_id
		JOIN levels l ON l.id = m.level_name_id
		WHERE m.id BETWEEN ? AND ?
		ORDER BY m.id`, fromID, toID)
	if err != nil {
		return errs.New("read", errs.KindIO, err)
	}
	defer rows.Close()

	tagStmt, err := b.db.Prepare(`SELECT t.name FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id WHERE mt.message_id = ? ORDER BY t.name`)
	if err != nil {
		return errs.New("read", errs.KindIO, err)
	}
	defer tagStmt.Close()

	for rows.Next() {
		var msg record.Message
		var utcTicks, offsetTicks int64
		var hasTags int
		if err := rows.Scan(&msg.Id, &utcTicks, &offsetTicks, &msg.HighPrecisionTimestamp,
			&msg.LostMessageCount, &msg.ProcessId, &msg.ProcessName, &msg.ApplicationName,
			&msg.LogWriterName, &msg.LogLevelName, &hasTags, &msg.Text); err != nil {
			return errs.New("read", errs.KindIO, err)
		}
		msg.Timestamp = timeFromTicks(utcTicks, offsetTicks)
		msg.ProcessName = b.strings.Intern(msg.ProcessName)
		msg.ApplicationName = b.strings.Intern(msg.ApplicationName)
		msg.LogWriterName = b.strings.Intern(msg.LogWriterName)
		msg.LogLevelName = b.strings.Intern(msg.LogLevelName)

		if hasTags != 0 {
			tagRows, err := tagStmt.Query(msg.Id)
			if err != nil {
				return errs.New("read", errs.KindIO, err)
			}
			for tagRows.Next() {
				var tag string
				if err := tagRows.Scan(&tag); err != nil {
					tagRows.Close()
					return errs.New("read", errs.KindIO, err)
				}
				msg.Tags = append(msg.Tags, b.strings.Intern(tag))
			}
			tagRows.Close()
		}

		if !fn(msg) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return errs.New("read", errs.KindIO, err)
	}
	return nil
}

func (b *base) read(fromID int64, count int) ([]record.Message, error) {
	if count < 0 {
		return nil, errs.New("read", errs.KindArgumentOutOfRange, nil)
	}
	out := make([]record.Message, 0, count)
	err := b.readFunc(fromID, count, func(m record.Message) bool {
		out = append(out, m)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *base) clear(messagesOnly bool) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errs.New("clear", errs.KindIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM message_tags"); err != nil {
		return errs.New("clear", errs.KindIO, err)
	}
	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return errs.New("clear", errs.KindIO, err)
	}
	if !messagesOnly {
		for _, table := range []string{"tags", "levels", "writers", "applications", "processes"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return errs.New("clear", errs.KindIO, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.New("clear", errs.KindIO, err)
	}

	if !messagesOnly {
		b.resetCaches()
	}
	b.oldestID, b.newestID = -1, -1
	return nil
}

func (b *base) prune(maxCount int64, minTimestampUTC time.Time) error {
	if b.oldestID < 0 {
		return nil
	}

	idByTime := int64(-1)
	if !minTimestampUTC.IsZero() {
		utcTicks, _ := ticksFromTime(minTimestampUTC)
		var id sql.NullInt64
		err := b.db.QueryRow(`SELECT MAX(id) FROM messages WHERE timestamp < ?`, utcTicks).Scan(&id)
		if err != nil {
			return errs.New("prune", errs.KindIO, err)
		}
		if id.Valid {
			idByTime = id.Int64
		}
	}

	idByCount := int64(-1)
	if maxCount >= 0 {
		current := b.Count()
		toDrop := current - maxCount
		if toDrop > 0 {
			idByCount = b.oldestID + toDrop - 1
		}
	}

	cut := idByTime
	if idByCount > cut {
		cut = idByCount
	}
	if cut < b.oldestID {
		return nil
	}
	if cut > b.newestID {
		cut = b.newestID
	}

	tx, err := b.db.Begin()
	if err != nil {
		return errs.New("prune", errs.KindIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM message_tags WHERE message_id <= ?`, cut); err != nil {
		return errs.New("prune", errs.KindIO, err)
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE id <= ?`, cut); err != nil {
		return errs.New("prune", errs.KindIO, err)
	}
	if err := tx.Commit(); err != nil {
		return errs.New("prune", errs.KindIO, err)
	}

	if cut >= b.newestID {
		b.oldestID, b.newestID = -1, -1
	} else {
		b.oldestID = cut + 1
	}
	return nil
}

func (b *base) vacuum() error {
	if _, err := b.db.Exec("VACUUM"); err != nil {
		return errs.New("vacuum", errs.KindIO, err)
	}
	return nil
}

func (b *base) getNames(kind NameKind, usedOnly bool) ([]string, error) {
	table := kind.table()
	var rows *sql.Rows
	var err error
	if !usedOnly {
		rows, err = b.db.Query("SELECT name FROM "+table+" ORDER BY name")
	} else if kind == NameKindTag {
		rows, err = b.db.Query(`
			SELECT DISTINCT t.name FROM tags t
			JOIN message_tags mt ON mt.tag_id = t.id
			ORDER BY t.name`)
	} else {
		rows, err = b.db.Query(`
			SELECT DISTINCT d.name FROM ` + table + ` d
			JOIN messages m ON m.` + kind.messageColumn() + ` = d.id
			ORDER BY d.name`)
	}
	if err != nil {
		return nil, errs.New("get-names", errs.KindIO, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.New("get-names", errs.KindIO, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New("get-names", errs.KindIO, err)
	}
	return names, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// dedupeTags collapses duplicate tag values so tag_count and the
// message_tags association rows agree on the distinct tag count. It
// never mutates the caller's slice.
func dedupeTags(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
