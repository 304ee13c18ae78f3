// Package service contains the application use cases behind the HTTP API.
// It orchestrates the stores (internal/store), object storage and the
// generation providers to fulfil features such as queueing render tasks,
// paid image generation and project management.
//
// Key components:
//
// 1. Service Interfaces:
//   - Define the operations available to the delivery mechanisms
//   - Each service covers one area (users, projects, tasks, AI tools, uploads)
//
// 2. Use Case Implementations:
//   - Apply transactional boundaries when credits and rows change together
//   - Enforce ownership: a resource owned by another user reads as missing
//   - Refund credits when paid work cannot be delivered
//
// 3. Error Handling:
//   - Translate store errors into the sentinels in errors.go
//   - Wrap unexpected failures in ServiceError for the API layer to map
//
// Services depend on store and provider interfaces, never on concrete
// infrastructure.
package service
