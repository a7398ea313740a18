package sqlitescene

import (
	"context"
	"fmt"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/scenegraph"
	"go.uber.org/multierr"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Save writes every datablock of store, with links and properties, to the
// SQLite file at path. An existing document at path is replaced in a single
// transaction.
func Save(ctx context.Context, store scenegraph.Store, path string) (err error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { err = multierr.Append(err, conn.Close()) }()
	conn.SetInterrupt(ctx.Done())

	if err := sqlitex.ExecuteScript(conn, createSchema, nil); err != nil {
		return fmt.Errorf("create schema in %s: %w", path, err)
	}
	if err := write(ctx, conn, store); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	ctxlog.FromContext(ctx).Debug("Saved document.", "path", path,
		"collections", len(store.Collections(ctx)),
		"objects", len(store.Objects(ctx)),
		"payloads", len(store.Payloads(ctx)),
	)
	return nil
}

func write(ctx context.Context, conn *sqlite.Conn, store scenegraph.Store) (err error) {
	defer sqlitex.Save(conn)(&err)

	if err := sqlitex.ExecuteScript(conn, clearTables, nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA user_version = %d;", formatVersion), nil); err != nil {
		return err
	}

	for i, p := range store.Payloads(ctx) {
		if err := exec(conn, `INSERT INTO payloads (name, kind, position) VALUES (?, ?, ?);`, p.Name, p.Kind.String(), i); err != nil {
			return err
		}
	}
	for i, c := range store.Collections(ctx) {
		if err := exec(conn, `INSERT INTO collections (name, position) VALUES (?, ?);`, c.Name(), i); err != nil {
			return err
		}
		if err := writeProps(conn, c.Name(), kindCollection, c.Props()); err != nil {
			return err
		}
	}
	for i, o := range store.Objects(ctx) {
		var payload any
		if o.Data() != nil {
			payload = o.Data().Name
		}
		if err := exec(conn, `INSERT INTO objects (name, payload, position) VALUES (?, ?, ?);`, o.Name(), payload, i); err != nil {
			return err
		}
		if err := writeProps(conn, o.Name(), kindObject, o.Props()); err != nil {
			return err
		}
	}

	scene := store.Scene(ctx)
	if err := writeProps(conn, sceneParent, kindScene, scene.Props()); err != nil {
		return err
	}
	if err := writeLinks(conn, sceneParent, scene); err != nil {
		return err
	}
	for _, c := range store.Collections(ctx) {
		if err := writeLinks(conn, c.Name(), c); err != nil {
			return err
		}
	}
	return nil
}

func writeLinks(conn *sqlite.Conn, parent string, c *scenegraph.Collection) error {
	pos := 0
	for _, child := range c.Children() {
		if err := exec(conn, `INSERT INTO links (parent, child, child_kind, position) VALUES (?, ?, ?, ?);`, parent, child.Name(), kindCollection, pos); err != nil {
			return err
		}
		pos++
	}
	for _, obj := range c.Objects() {
		if err := exec(conn, `INSERT INTO links (parent, child, child_kind, position) VALUES (?, ?, ?, ?);`, parent, obj.Name(), kindObject, pos); err != nil {
			return err
		}
		pos++
	}
	return nil
}

func writeProps(conn *sqlite.Conn, owner, kind string, props map[string]string) error {
	for k, v := range props {
		if err := exec(conn, `INSERT INTO props (owner, owner_kind, key, value) VALUES (?, ?, ?, ?);`, owner, kind, k, v); err != nil {
			return err
		}
	}
	return nil
}

func exec(conn *sqlite.Conn, query string, args ...any) error {
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
}
