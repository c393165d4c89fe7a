// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// IDMUS serializes an ID in MUS format.
var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// KnowledgeEntryMUS serializes a KnowledgeEntry in MUS format.
// Field order is part of the on-disk format; append new fields at the end.
// Timestamps are stored as Unix microseconds, with 0 meaning the zero time.
var KnowledgeEntryMUS = knowledgeEntryMUS{}

type knowledgeEntryMUS struct{}

func (s knowledgeEntryMUS) Marshal(v KnowledgeEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.TenantID, bs[n:])
	n += ord.String.Marshal(v.Question, bs[n:])
	n += ord.String.Marshal(v.Answer, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += ord.String.Marshal(v.Keywords, bs[n:])
	n += ord.String.Marshal(v.Language, bs[n:])
	n += varint.Int64.Marshal(int64(v.Priority), bs[n:])
	n += ord.Bool.Marshal(v.IsActive, bs[n:])
	n += varint.Int64.Marshal(v.UsageCount, bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.LastUsed), bs[n:])
	n += varint.Int64.Marshal(timeToMicro(v.InsertedAt), bs[n:])
	return n + varint.Int64.Marshal(timeToMicro(v.UpdatedAt), bs[n:])
}

func (s knowledgeEntryMUS) Unmarshal(bs []byte) (v KnowledgeEntry, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	texts := []*string{&v.TenantID, &v.Question, &v.Answer, &v.Category, &v.Keywords, &v.Language}
	for _, field := range texts {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	var priority int64
	priority, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Priority = int(priority)
	v.IsActive, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UsageCount, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	times := []*time.Time{&v.LastUsed, &v.InsertedAt, &v.UpdatedAt}
	for _, field := range times {
		var micros int64
		micros, n1, err = varint.Int64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		*field = microToTime(micros)
	}
	return
}

func (s knowledgeEntryMUS) Size(v KnowledgeEntry) (size int) {
	size = IDMUS.Size(v.Id)
	for _, field := range []string{v.TenantID, v.Question, v.Answer, v.Category, v.Keywords, v.Language} {
		size += ord.String.Size(field)
	}
	size += varint.Int64.Size(int64(v.Priority))
	size += ord.Bool.Size(v.IsActive)
	size += varint.Int64.Size(v.UsageCount)
	size += varint.Int64.Size(timeToMicro(v.LastUsed))
	size += varint.Int64.Size(timeToMicro(v.InsertedAt))
	return size + varint.Int64.Size(timeToMicro(v.UpdatedAt))
}

func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}
