package keymap

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/seekerror/logw"
)

// Watch watches path for writes and pushes a freshly built *Keymap on the
// returned channel each time the file changes and still parses. A failed
// rebuild is logged and does not close the channel -- the last good keymap
// stays in effect until the next successful write. The channel is closed
// when ctx is done.
//
// Watch never mutates a Keymap in place: every value it sends is a brand
// new, independently-built tree, preserving the "immutable after
// construction" invariant for any keymap already handed to an Engine.
func Watch(ctx context.Context, path string) (<-chan *Keymap, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan *Keymap, 1)
	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				km, err := Load(path)
				if err != nil {
					logw.Warningf(ctx, "keymap: reload of %v failed, keeping previous keymap: %v", path, err)
					continue
				}

				logw.Infof(ctx, "keymap: reloaded %v", path)
				select {
				case out <- km:
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logw.Warningf(ctx, "keymap: watch error on %v: %v", path, err)
			}
		}
	}()
	return out, nil
}
