// Copyright 2025 Nhat-Nguyen Nguyen
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

// Package paging holds offset paging parameters and results shared by every
// list endpoint.
package paging

import (
	"encoding/json"
	"math"
	"net/http"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 50

	HeaderName = "Pagination"
)

// Config is read with the PAGING_ prefix.
type Config struct {
	MaxPageSize int `env:"MAX_PAGE_SIZE" envDefault:"50"`
}

// Params are normalized offset paging parameters.
type Params struct {
	PageNumber int
	PageSize   int
}

// NewParams applies defaults and clamps size to maxSize. Non-positive
// inputs mean "use the default"; maxSize <= 0 falls back to MaxPageSize.
// The page number is capped so Offset never overflows.
func NewParams(pageNumber, pageSize, maxSize int) Params {
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if pageNumber < 1 {
		pageNumber = DefaultPageNumber
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, maxSize)
	return Params{PageNumber: min(pageNumber, math.MaxInt/pageSize), PageSize: pageSize}
}

func (p Params) Normalize() Params {
	return NewParams(p.PageNumber, p.PageSize, MaxPageSize)
}

func (p Params) Limit() int { return p.PageSize }

func (p Params) Offset() int { return (p.PageNumber - 1) * p.PageSize }

// PagedList is one page of T plus the totals of the whole result set.
type PagedList[T any] struct {
	Items       []T
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
}

func NewPagedList[T any](items []T, total int, p Params) PagedList[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return PagedList[T]{
		Items:       items,
		CurrentPage: p.PageNumber,
		PageSize:    p.PageSize,
		TotalCount:  total,
		TotalPages:  pages,
	}
}

// Map converts the items of a page while keeping its totals.
func Map[T, U any](in PagedList[T], fn func(T) U) PagedList[U] {
	out := make([]U, len(in.Items))
	for i, item := range in.Items {
		out[i] = fn(item)
	}
	return PagedList[U]{
		Items:       out,
		CurrentPage: in.CurrentPage,
		PageSize:    in.PageSize,
		TotalCount:  in.TotalCount,
		TotalPages:  in.TotalPages,
	}
}

type Header struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
}

// WriteHeader sets the Pagination header and exposes it to browsers. It must
// run before the body is written.
func WriteHeader[T any](w http.ResponseWriter, page PagedList[T]) {
	bs, _ := json.Marshal(Header{
		CurrentPage:  page.CurrentPage,
		ItemsPerPage: page.PageSize,
		TotalItems:   page.TotalCount,
		TotalPages:   page.TotalPages,
	})
	w.Header().Set(HeaderName, string(bs))
	w.Header().Add("Access-Control-Expose-Headers", HeaderName)
}
