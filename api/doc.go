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

// Package api exposes knowledge search, entry listing and grounded chat
// replies over HTTP.
//
// Routes:
//
//	GET  /healthz
//	POST /api/v1/tenants/:tenant/search
//	GET  /api/v1/tenants/:tenant/entries?language=
//	POST /api/v1/tenants/:tenant/chat
//
// Search always answers 200 for a well-formed request; retrieval failures
// surface as an empty result list. Chat answers 503 when no completion
// model is configured.
package api
