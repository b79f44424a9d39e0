/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package logger

import (
	"net/http"
	"sync"
	"time"
)

// debugAutoOff bounds how long debug logging stays on after an HTTP toggle.
const debugAutoOff = 10 * time.Hour

type HandleFuncRegistry interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// RegisterHttpHandler exposes debug logging switches on mux.
func RegisterHttpHandler(mux HandleFuncRegistry) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	mux.HandleFunc("/api/log/debug/start", func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		DebugEnabled = true
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debugAutoOff, func() {
			DebugEnabled = false
		})
		mu.Unlock()
		writer.Write([]byte("OK"))
	})
	mux.HandleFunc("/api/log/debug/stop", func(writer http.ResponseWriter, request *http.Request) {
		DebugEnabled = false
		writer.Write([]byte("OK"))
	})
}
