package logic

import (
	"fmt"
	"sort"
	"sync"

	"github.com/byebyebruce/rollbackserver/logic/room"
	"github.com/byebyebruce/rollbackserver/pkg/directory"

	l4g "github.com/alecthomas/log4go"
)

// RoomManager 房间管理器, 每个房间是一个独立的世界
type RoomManager struct {
	cfg  room.Config
	host room.Host
	dir  directory.Directory

	room map[uint64]*room.Room
	wg   sync.WaitGroup
	rw   sync.RWMutex
}

// NewRoomManager 构造
func NewRoomManager(cfg room.Config, host room.Host, dir directory.Directory) *RoomManager {
	m := &RoomManager{
		cfg:  cfg,
		host: host,
		dir:  dir,
		room: make(map[uint64]*room.Room),
	}
	return m
}

// CreateRoom 创建房间
func (m *RoomManager) CreateRoom(id uint64) (*room.Room, error) {
	m.rw.Lock()
	defer m.rw.Unlock()

	r, ok := m.room[id]
	if ok {
		return nil, fmt.Errorf("room id[%d] exists", id)
	}

	r = room.NewRoom(id, m.cfg, m.host, m.dir)
	m.room[id] = r

	m.wg.Add(1)
	go func() {
		defer func() {
			m.rw.Lock()
			if m.room[id] == r {
				delete(m.room, id)
			}
			m.rw.Unlock()

			m.wg.Done()
		}()
		r.Run()
	}()

	l4g.Info("[manager] create room %d", id)
	return r, nil
}

// GetRoom 获得房间
func (m *RoomManager) GetRoom(id uint64) *room.Room {
	m.rw.RLock()
	defer m.rw.RUnlock()

	return m.room[id]
}

// RoomNum 获得房间数量
func (m *RoomManager) RoomNum() int {
	m.rw.RLock()
	defer m.rw.RUnlock()

	return len(m.room)
}

// Status 所有房间的状态, 按 ID 排序
func (m *RoomManager) Status() []room.Status {
	m.rw.RLock()
	ret := make([]room.Status, 0, len(m.room))
	for _, r := range m.room {
		ret = append(ret, r.Status())
	}
	m.rw.RUnlock()

	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// CloseRoom 关闭一个房间
func (m *RoomManager) CloseRoom(id uint64) bool {
	r := m.GetRoom(id)
	if r == nil {
		return false
	}
	r.Stop()
	return true
}

// Stop 停止
func (m *RoomManager) Stop() {
	m.rw.Lock()
	rooms := make([]*room.Room, 0, len(m.room))
	for _, v := range m.room {
		rooms = append(rooms, v)
	}
	m.rw.Unlock()

	for _, v := range rooms {
		v.Stop()
	}

	m.wg.Wait()
}
