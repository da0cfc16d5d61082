// Package memstore 进程内存储，实现各服务的 Store 接口，用于测试和 driver=memory 的本地运行。
//
// 事务通过全局互斥串行执行，开始时保存快照，出错或 panic 时整体恢复。
// 事务外的写操作同样获取该互斥，因此回滚不会覆盖其他写入；事务外的读不加事务锁。
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/iceymoss/go-agora/pkg/db/objects"
)

type txKey struct{}

type state struct {
	seq uint64

	visits        []objects.VisitorLog
	keywords      []objects.TrendingKeyword
	articles      []objects.HomeArticle
	topics        map[uint64]objects.Topic
	topicArticles []objects.TopicArticle
	votes         map[uint64]objects.TopicVote
	views         []objects.TopicViewLog

	chats          map[uint64]objects.ChatMessage
	chatReports    []objects.ChatReport
	comments       map[uint64]objects.TopicComment
	commentReports []objects.CommentReport
	reactions      map[uint64]objects.CommentReaction

	jobs    []objects.SysJob
	jobLogs map[uint]objects.SysJobLog
}

func newState() *state {
	return &state{
		topics:    map[uint64]objects.Topic{},
		votes:     map[uint64]objects.TopicVote{},
		chats:     map[uint64]objects.ChatMessage{},
		comments:  map[uint64]objects.TopicComment{},
		reactions: map[uint64]objects.CommentReaction{},
		jobLogs:   map[uint]objects.SysJobLog{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:            s.seq,
		visits:         append([]objects.VisitorLog(nil), s.visits...),
		keywords:       append([]objects.TrendingKeyword(nil), s.keywords...),
		articles:       append([]objects.HomeArticle(nil), s.articles...),
		topics:         make(map[uint64]objects.Topic, len(s.topics)),
		topicArticles:  append([]objects.TopicArticle(nil), s.topicArticles...),
		votes:          make(map[uint64]objects.TopicVote, len(s.votes)),
		views:          append([]objects.TopicViewLog(nil), s.views...),
		chats:          make(map[uint64]objects.ChatMessage, len(s.chats)),
		chatReports:    append([]objects.ChatReport(nil), s.chatReports...),
		comments:       make(map[uint64]objects.TopicComment, len(s.comments)),
		commentReports: append([]objects.CommentReport(nil), s.commentReports...),
		reactions:      make(map[uint64]objects.CommentReaction, len(s.reactions)),
		jobs:           append([]objects.SysJob(nil), s.jobs...),
		jobLogs:        make(map[uint]objects.SysJobLog, len(s.jobLogs)),
	}
	for k, v := range s.topics {
		c.topics[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.chats {
		c.chats[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.reactions {
		c.reactions[k] = v
	}
	for k, v := range s.jobLogs {
		c.jobLogs[k] = v
	}
	return c
}

// Store 内存存储
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state

	faultMu sync.Mutex
	faults  map[string]error
}

func New() *Store {
	return &Store{data: newState(), faults: map[string]error{}}
}

// Execute 实现事务管理器。ctx 已处于事务中时直接复用。
func (s *Store) Execute(ctx context.Context, _ *sql.TxOptions, operation func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return operation(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			s.restore(snapshot)
			panic(r)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()
	return operation(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// Fail 让名为 op 的方法返回 err，err 为 nil 时取消。用于模拟存储故障。
func (s *Store) Fail(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

// read 以读锁执行 fn
func (s *Store) read(ctx context.Context, op string, fn func(d *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fault(op); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write 事务外的写入先获取事务锁
func (s *Store) write(ctx context.Context, op string, fn func(d *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fault(op); err != nil {
		return err
	}
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (d *state) nextID() uint64 {
	d.seq++
	return d.seq
}

// Ping 总是可用，除非注入了故障
func (s *Store) Ping(ctx context.Context) error {
	return s.read(ctx, "Ping", func(*state) error { return nil })
}

func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("memstore(topics=%d chats=%d comments=%d)", len(s.data.topics), len(s.data.chats), len(s.data.comments))
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortStable[T any](list []T, less func(a, b T) bool) {
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}
