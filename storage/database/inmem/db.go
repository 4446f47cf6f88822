package inmemdb

import (
	"sync"
	"time"

	"github.com/earnyourwings/wings/core/session"
)

var NowFunc = time.Now // mockable

type (
	DB struct {
		session *sessionTable
	}

	sessionRow struct {
		sess     *session.Session
		lastSeen time.Time
	}

	sessionTable struct {
		mutex sync.RWMutex
		table map[string]*sessionRow
	}
)

func Open() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]*sessionRow)},
	}
}
