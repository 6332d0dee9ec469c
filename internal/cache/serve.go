package cache

import (
	"encoding/json"
	"errors"
	"net"
)

// Serve accepts daemon connections on l and answers them from s until l is
// closed.
func Serve(l net.Listener, s Storage) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		go handleConn(conn, s)
	}
}

func handleConn(conn net.Conn, s Storage) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(dispatch(s, req))
	}
}

func dispatch(s Storage, req Request) Response {
	switch req.Op {
	case OpMatch:
		e, err := s.Match(req.Partition, req.Key)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Entry: e}
	case OpPut:
		if req.Entry == nil {
			return Response{Error: "missing entry"}
		}
		if err := s.Put(req.Partition, req.Key, req.Entry); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case OpPutAll:
		if err := s.PutAll(req.Partition, req.Entries); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case OpKeys:
		keys, err := s.Keys(req.Partition)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Keys: keys}
	case OpPartitions:
		names, err := s.Partitions()
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Partitions: names}
	case OpDeletePartition:
		existed, err := s.DeletePartition(req.Partition)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Existed: existed}
	default:
		return Response{Error: "unknown op"}
	}
}
