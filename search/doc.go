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


// Package search ranks catalog entries against free-text occupation queries.
//
// The Ranker implements two scoring strategies:
//   - Hybrid: a weighted sum of embedding cosine similarity and lexical
//     token-sort ratio (0.7 and 0.3 by default)
//   - Fallback: case-insensitive substring containment, used when no
//     embedding provider is available
//
// The Controller decides once, at startup, which strategy serves the
// process by probing the embedding provider. A provider failure during an
// individual hybrid search degrades only that search to fallback scoring.
//
// Service combines both and renders every outcome, including invalid input
// and unexpected failures, as a core.Response.
package search
