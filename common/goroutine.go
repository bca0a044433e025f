package common

import "github.com/inconshreveable/log15"

var glog = log15.New("module", "common")

// Go launches fn on its own goroutine and turns a panic into a logged crash
// instead of a silent goroutine death.
func Go(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				glog.Error("panic", "err", err)
				panic(err)
			}
		}()
		fn()
	}()
}
