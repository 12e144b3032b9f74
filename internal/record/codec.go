package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"tracereplay/internal/errs"
)

const (
	fileHeaderSize    = 16
	genericHeaderSize = 16
)

// DecodeFile reads one complete trace file: the 16-byte file header followed
// by a sequence of generic-header-prefixed records. It refuses to silently
// skip bytes: an unknown kind or a short read aborts decoding immediately.
func DecodeFile(r io.Reader) (FileHeader, []Record, error) {
	var fh FileHeader
	hdrBuf := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(r, hdrBuf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fh, nil, errs.ShortReadErrorf("file header: %v", err)
		}
		return fh, nil, errs.IOErrorf("reading file header: %v", err)
	}
	copy(fh.Magic[:], hdrBuf[0:4])
	fh.Version = binary.LittleEndian.Uint32(hdrBuf[4:8])
	fh.Pid = binary.LittleEndian.Uint32(hdrBuf[8:12])
	fh.Tid = binary.LittleEndian.Uint32(hdrBuf[12:16])
	if fh.Magic != WantMagic {
		return fh, nil, errs.BadMagicErrorf("got %q", fh.Magic[:])
	}

	var records []Record
	genBuf := make([]byte, genericHeaderSize)
	for {
		_, err := io.ReadFull(r, genBuf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return fh, nil, errs.ShortReadErrorf("generic header: %v", err)
		}
		if err != nil {
			return fh, nil, errs.IOErrorf("reading generic header: %v", err)
		}

		ts := binary.LittleEndian.Uint64(genBuf[0:8])
		kind := Kind(binary.LittleEndian.Uint32(genBuf[8:12]))
		reserved := binary.LittleEndian.Uint32(genBuf[12:16])

		size, ok := payloadSize(kind)
		if !ok {
			return fh, nil, errs.UnknownKindErrorf("kind=%d", uint32(kind))
		}

		payloadBuf := make([]byte, size)
		if size > 0 {
			if _, err := io.ReadFull(r, payloadBuf); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					return fh, nil, errs.ShortReadErrorf("payload for kind %s: %v", kind, err)
				}
				return fh, nil, errs.IOErrorf("reading payload: %v", err)
			}
		}

		payload, err := decodePayload(kind, payloadBuf)
		if err != nil {
			return fh, nil, err
		}

		records = append(records, Record{
			Pid:       fh.Pid,
			Tid:       fh.Tid,
			Timestamp: ts,
			Reserved:  reserved,
			Payload:   payload,
		})
	}

	return fh, records, nil
}

func decodePayload(kind Kind, b []byte) (Payload, error) {
	le := binary.LittleEndian
	switch kind {
	case KindBegin, KindEnd:
		return Ignore{}, nil
	case KindDependency:
		return Dependency{OutUID: le.Uint32(b[0:4]), InUID: le.Uint32(b[4:8])}, nil
	case KindSchedule:
		var s Schedule
		s.UID = le.Uint32(b[0:4])
		s.Priority = le.Uint32(b[4:8])
		s.Props = le.Uint32(b[8:12])
		s.ScheduleID = le.Uint32(b[12:16])
		s.Statuses = le.Uint32(b[16:20])
		// b[20:24] is padding.
		for i := 0; i < 4; i++ {
			s.HW[i] = le.Uint64(b[24+i*8 : 32+i*8])
		}
		return s, nil
	case KindCreate:
		var c Create
		c.UID = le.Uint32(b[0:4])
		c.PersistentUID = le.Uint32(b[4:8])
		c.Props = le.Uint32(b[8:12])
		c.Statuses = le.Uint32(b[12:16])
		labelRaw := b[16:80]
		if nul := bytes.IndexByte(labelRaw, 0); nul >= 0 {
			c.Label = string(labelRaw[:nul])
		} else {
			c.Label = string(labelRaw)
		}
		c.Color = le.Uint32(b[80:84])
		c.ParentUID = le.Uint32(b[84:88])
		c.OMPPriority = le.Uint32(b[88:92])
		return c, nil
	case KindDelete:
		var d Delete
		d.UID = le.Uint32(b[0:4])
		d.Priority = le.Uint32(b[4:8])
		d.Props = le.Uint32(b[8:12])
		d.Statuses = le.Uint32(b[12:16])
		return d, nil
	case KindSend:
		var s Send
		s.UID, s.Count, s.Dtype, s.Dst, s.Tag, s.Comm, s.Completed =
			le.Uint32(b[0:4]), le.Uint32(b[4:8]), le.Uint32(b[8:12]), le.Uint32(b[12:16]), le.Uint32(b[16:20]), le.Uint32(b[20:24]), le.Uint32(b[24:28])
		return s, nil
	case KindRecv:
		var r Recv
		r.UID, r.Count, r.Dtype, r.Src, r.Tag, r.Comm, r.Completed =
			le.Uint32(b[0:4]), le.Uint32(b[4:8]), le.Uint32(b[8:12]), le.Uint32(b[12:16]), le.Uint32(b[16:20]), le.Uint32(b[20:24]), le.Uint32(b[24:28])
		return r, nil
	case KindAllreduce:
		var a Allreduce
		a.UID = le.Uint32(b[0:4])
		a.Count = le.Uint32(b[4:8])
		a.Dtype = le.Uint32(b[8:12])
		a.Op = le.Uint32(b[12:16])
		a.Comm = le.Uint32(b[16:20])
		a.Completed = le.Uint32(b[20:24])
		return a, nil
	case KindRank:
		return Rank{Comm: le.Uint32(b[0:4]), Rank: le.Uint32(b[4:8])}, nil
	case KindBlocked:
		return Blocked{UID: le.Uint32(b[0:4])}, nil
	case KindUnblocked:
		return Unblocked{UID: le.Uint32(b[0:4])}, nil
	default:
		return nil, errs.UnknownKindErrorf("kind=%d", uint32(kind))
	}
}

// EncodeFile writes a file header followed by every record's generic header
// and payload. It is the inverse of DecodeFile and exists primarily to
// support the codec round-trip property and the decode cache.
func EncodeFile(w io.Writer, fh FileHeader, records []Record) error {
	hdrBuf := make([]byte, fileHeaderSize)
	copy(hdrBuf[0:4], fh.Magic[:])
	binary.LittleEndian.PutUint32(hdrBuf[4:8], fh.Version)
	binary.LittleEndian.PutUint32(hdrBuf[8:12], fh.Pid)
	binary.LittleEndian.PutUint32(hdrBuf[12:16], fh.Tid)
	if _, err := w.Write(hdrBuf); err != nil {
		return errs.IOErrorf("writing file header: %v", err)
	}

	for _, rec := range records {
		if err := encodeRecord(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func encodeRecord(w io.Writer, rec Record) error {
	kind := rec.Kind()
	size, ok := payloadSize(kind)
	if !ok {
		return errs.UnknownKindErrorf("kind=%d", uint32(kind))
	}

	genBuf := make([]byte, genericHeaderSize)
	binary.LittleEndian.PutUint64(genBuf[0:8], rec.Timestamp)
	binary.LittleEndian.PutUint32(genBuf[8:12], uint32(kind))
	binary.LittleEndian.PutUint32(genBuf[12:16], rec.Reserved)
	if _, err := w.Write(genBuf); err != nil {
		return errs.IOErrorf("writing generic header: %v", err)
	}

	if size == 0 {
		return nil
	}
	payloadBuf := make([]byte, size)
	if err := encodePayload(payloadBuf, rec.Payload); err != nil {
		return err
	}
	if _, err := w.Write(payloadBuf); err != nil {
		return errs.IOErrorf("writing payload: %v", err)
	}
	return nil
}

func encodePayload(b []byte, p Payload) error {
	le := binary.LittleEndian
	switch v := p.(type) {
	case Ignore:
		return nil
	case Dependency:
		le.PutUint32(b[0:4], v.OutUID)
		le.PutUint32(b[4:8], v.InUID)
	case Schedule:
		le.PutUint32(b[0:4], v.UID)
		le.PutUint32(b[4:8], v.Priority)
		le.PutUint32(b[8:12], v.Props)
		le.PutUint32(b[12:16], v.ScheduleID)
		le.PutUint32(b[16:20], v.Statuses)
		for i := 0; i < 4; i++ {
			le.PutUint64(b[24+i*8:32+i*8], v.HW[i])
		}
	case Create:
		le.PutUint32(b[0:4], v.UID)
		le.PutUint32(b[4:8], v.PersistentUID)
		le.PutUint32(b[8:12], v.Props)
		le.PutUint32(b[12:16], v.Statuses)
		if len(v.Label) > 64 {
			return fmt.Errorf("label %q exceeds 64 bytes", v.Label)
		}
		copy(b[16:80], v.Label)
		le.PutUint32(b[80:84], v.Color)
		le.PutUint32(b[84:88], v.ParentUID)
		le.PutUint32(b[88:92], v.OMPPriority)
	case Delete:
		le.PutUint32(b[0:4], v.UID)
		le.PutUint32(b[4:8], v.Priority)
		le.PutUint32(b[8:12], v.Props)
		le.PutUint32(b[12:16], v.Statuses)
	case Send:
		le.PutUint32(b[0:4], v.UID)
		le.PutUint32(b[4:8], v.Count)
		le.PutUint32(b[8:12], v.Dtype)
		le.PutUint32(b[12:16], v.Dst)
		le.PutUint32(b[16:20], v.Tag)
		le.PutUint32(b[20:24], v.Comm)
		le.PutUint32(b[24:28], v.Completed)
	case Recv:
		le.PutUint32(b[0:4], v.UID)
		le.PutUint32(b[4:8], v.Count)
		le.PutUint32(b[8:12], v.Dtype)
		le.PutUint32(b[12:16], v.Src)
		le.PutUint32(b[16:20], v.Tag)
		le.PutUint32(b[20:24], v.Comm)
		le.PutUint32(b[24:28], v.Completed)
	case Allreduce:
		le.PutUint32(b[0:4], v.UID)
		le.PutUint32(b[4:8], v.Count)
		le.PutUint32(b[8:12], v.Dtype)
		le.PutUint32(b[12:16], v.Op)
		le.PutUint32(b[16:20], v.Comm)
		le.PutUint32(b[20:24], v.Completed)
	case Rank:
		le.PutUint32(b[0:4], v.Comm)
		le.PutUint32(b[4:8], v.Rank)
	case Blocked:
		le.PutUint32(b[0:4], v.UID)
	case Unblocked:
		le.PutUint32(b[0:4], v.UID)
	default:
		return errs.UnknownKindErrorf("payload type %T", p)
	}
	return nil
}
