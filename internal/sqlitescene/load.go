package sqlitescene

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/inmemoryscene"
	"github.com/vk/rehydrator/internal/scenegraph"
	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Load reads the document at path into a new in-memory store. opts configure
// the store, e.g. with the library its own imports resolve against.
func Load(ctx context.Context, path string, opts ...inmemoryscene.Option) (store *inmemoryscene.Store, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { err = multierr.Append(err, conn.Close()) }()
	conn.SetInterrupt(ctx.Done())

	var version int64
	err = sqlitex.ExecuteTransient(conn, `PRAGMA user_version;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("read %s: unsupported document version %d", path, version)
	}

	store = inmemoryscene.New(opts...)
	if err := read(ctx, conn, store); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Loaded document.", "path", path,
		"collections", len(store.Collections(ctx)),
		"objects", len(store.Objects(ctx)),
	)
	return store, nil
}

func read(ctx context.Context, conn *sqlite.Conn, store *inmemoryscene.Store) error {
	payloads := make(map[string]*scenegraph.Payload)
	err := query(conn, `SELECT name, kind FROM payloads ORDER BY position;`, func(stmt *sqlite.Stmt) error {
		name := stmt.ColumnText(0)
		kind, err := scenegraph.ParsePayloadKind(stmt.ColumnText(1))
		if err != nil {
			return fmt.Errorf("payload '%s': %w", name, err)
		}
		p, err := store.NewPayload(ctx, kind, name)
		if err != nil {
			return err
		}
		payloads[name] = p
		return nil
	})
	if err != nil {
		return err
	}

	err = query(conn, `SELECT name FROM collections ORDER BY position;`, func(stmt *sqlite.Stmt) error {
		_, err := store.NewCollection(ctx, stmt.ColumnText(0))
		return err
	})
	if err != nil {
		return err
	}

	err = query(conn, `SELECT name, payload FROM objects ORDER BY position;`, func(stmt *sqlite.Stmt) error {
		name := stmt.ColumnText(0)
		var data *scenegraph.Payload
		if stmt.ColumnType(1) != sqlite.TypeNull {
			var ok bool
			if data, ok = payloads[stmt.ColumnText(1)]; !ok {
				return fmt.Errorf("object '%s' refers to missing payload '%s'", name, stmt.ColumnText(1))
			}
		}
		_, err := store.NewObject(ctx, name, data)
		return err
	})
	if err != nil {
		return err
	}

	err = query(conn, `SELECT owner, owner_kind, key, value FROM props;`, func(stmt *sqlite.Stmt) error {
		owner, kind := stmt.ColumnText(0), stmt.ColumnText(1)
		key, value := stmt.ColumnText(2), stmt.ColumnText(3)
		switch kind {
		case kindScene:
			store.Scene(ctx).SetProp(key, value)
		case kindCollection:
			c, ok := store.Collection(ctx, owner)
			if !ok {
				return fmt.Errorf("property on missing collection '%s'", owner)
			}
			c.SetProp(key, value)
		case kindObject:
			o, ok := store.Object(ctx, owner)
			if !ok {
				return fmt.Errorf("property on missing object '%s'", owner)
			}
			o.SetProp(key, value)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return query(conn, `SELECT parent, child, child_kind FROM links ORDER BY parent, position;`, func(stmt *sqlite.Stmt) error {
		parentName, child, kind := stmt.ColumnText(0), stmt.ColumnText(1), stmt.ColumnText(2)
		parent := store.Scene(ctx)
		if parentName != sceneParent {
			var ok bool
			if parent, ok = store.Collection(ctx, parentName); !ok {
				return fmt.Errorf("link from missing collection '%s'", parentName)
			}
		}
		switch kind {
		case kindCollection:
			c, ok := store.Collection(ctx, child)
			if !ok {
				return fmt.Errorf("link to missing collection '%s'", child)
			}
			return store.LinkCollection(ctx, parent, c)
		default:
			o, ok := store.Object(ctx, child)
			if !ok {
				return fmt.Errorf("link to missing object '%s'", child)
			}
			return store.LinkObject(ctx, parent, o)
		}
	})
}

func query(conn *sqlite.Conn, q string, fn func(stmt *sqlite.Stmt) error) error {
	return sqlitex.Execute(conn, q, &sqlitex.ExecOptions{ResultFunc: fn})
}
