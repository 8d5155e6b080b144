// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package route

import (
	"errors"
	"fmt"
	"net/http"
)

// Response is a transport-level response a route guard returns instead of
// letting the route render, such as a redirect. It travels as an error so
// that it passes unchanged through the render path up to the HTTP front
// door, which then writes it verbatim.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Redirect returns a redirecting Response to the specified location. Status
// codes outside the 3xx range are replaced by 302 Found.
func Redirect(status int, location string) *Response {
	if status < 300 || status > 399 {
		status = http.StatusFound
	}
	return &Response{
		Status: status,
		Header: http.Header{"Location": []string{location}},
	}
}

// Error implements the error interface.
func (r *Response) Error() string {
	if loc := r.Header.Get("Location"); loc != "" {
		return fmt.Sprintf("route response %d to %s", r.Status, loc)
	}
	return fmt.Sprintf("route response %d", r.Status)
}

// Write sends the response to w.
func (r *Response) Write(w http.ResponseWriter) {
	for name, values := range r.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) > 0 {
		_, _ = w.Write(r.Body)
	}
}

// AsResponse returns the Response carried by err, if any.
func AsResponse(err error) (*Response, bool) {
	var resp *Response
	if errors.As(err, &resp) {
		return resp, true
	}
	return nil, false
}
