/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package stat accumulates counters in memory and prints them as log lines once per period.
package stat

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/traas-stack/holoinsight-etl/pkg/logger"
)

const DefaultInterval = time.Minute

// Default collects pipeline record counters.
var Default = NewStatManager(new(internalLoggerPrinter))

type (
	Manager struct {
		mutex    sync.Mutex
		adders   []*Adder
		adderMap map[string]*Adder
		period   time.Time
		printer  Printer
	}

	Printer interface {
		Print(st StatEvent)
	}

	Adder struct {
		mutex sync.Mutex
		name  string
		data  map[string][]int64
	}

	Bind struct {
		a         *Adder
		joinedKey string
	}

	StatEvent struct {
		Period       time.Time
		Now          time.Time
		CounterItems []CounterItem
	}

	CounterItem struct {
		Name string
		Data map[string][]int64
	}

	internalLoggerPrinter struct{}
)

func NewStatManager(printer Printer) *Manager {
	return &Manager{
		adderMap: make(map[string]*Adder),
		period:   time.Now(),
		printer:  printer,
	}
}

func (m *Manager) Counter(name string) *Adder {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if a, ok := m.adderMap[name]; ok {
		return a
	}
	a := &Adder{
		name: name,
		data: make(map[string][]int64),
	}
	m.adderMap[name] = a
	m.adders = append(m.adders, a)
	return a
}

// Run prints every interval until ctx is done, then prints what is left.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Flush()
			return nil
		case <-ticker.C:
			m.Flush()
		}
	}
}

// Flush hands the counters accumulated since the previous flush to the printer and resets them.
func (m *Manager) Flush() StatEvent {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	st := StatEvent{
		Period:       m.period,
		Now:          now,
		CounterItems: make([]CounterItem, len(m.adders)),
	}
	for i, a := range m.adders {
		st.CounterItems[i] = CounterItem{Name: a.name, Data: a.getAndClear()}
	}
	m.period = now
	m.printer.Print(st)
	return st
}

func (a *Adder) Add(keys []string, values []int64) {
	a.add(joinKey(keys), values)
}

// Bind fixes keys so that hot paths only pass values. Keys must not contain ','.
func (a *Adder) Bind(keys ...string) *Bind {
	return &Bind{
		a:         a,
		joinedKey: joinKey(keys),
	}
}

func (b *Bind) Add(values ...int64) {
	b.a.add(b.joinedKey, values)
}

func (a *Adder) add(key string, values []int64) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	acc, ok := a.data[key]
	if !ok {
		acc = make([]int64, len(values))
		a.data[key] = acc
	} else if len(acc) != len(values) {
		return
	}
	for i := range acc {
		acc[i] += values[i]
	}
}

func (a *Adder) getAndClear() map[string][]int64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	data := a.data
	a.data = make(map[string][]int64)
	return data
}

func joinKey(keys []string) string {
	return strings.Join(keys, ",")
}

// Lines formats st as "name,key...,value..." lines sorted by key.
func (st StatEvent) Lines() []string {
	var lines []string
	sb := strings.Builder{}
	for _, c := range st.CounterItems {
		keys := make([]string, 0, len(c.Data))
		for key := range c.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			values := c.Data[key]
			if len(values) == 0 {
				continue
			}
			sb.Reset()
			sb.WriteString(c.Name)
			if len(key) > 0 {
				sb.WriteByte(',')
				sb.WriteString(key)
			}
			for _, value := range values {
				sb.WriteByte(',')
				sb.WriteString(strconv.FormatInt(value, 10))
			}
			lines = append(lines, sb.String())
		}
	}
	return lines
}

func (*internalLoggerPrinter) Print(st StatEvent) {
	for _, line := range st.Lines() {
		logger.Stat(line)
	}
}
