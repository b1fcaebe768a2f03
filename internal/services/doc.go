// Package services implements the external action gateway against the storage API proxy.
//
// # Gateway
//
// [Gateway] is the boundary used by the resolver and the playlist builder. It resolves single
// collisions, resolves batches with one aggregate result, and lists source items.
//
// # NodeService
//
// [NodeService] talks JSON to the proxy:
//   - POST /api/nodes/copy    : copy a node or import a chat attachment
//   - POST /api/nodes/move    : move a node
//   - POST /api/uploads       : upload a local file
//   - POST /api/nodes/rubbish : move a node to the rubbish bin
//   - GET  /api/nodes?parent= : list the children of a node
//
// Requests are paced with a [rate.Limiter]. When client credentials are configured the HTTP
// client comes from [clientcredentials.Config], which fetches and refreshes tokens on its own.
// Batches run on an [errgroup.Group] bounded by the configured worker count.
//
// # Error Handling
//
// Proxy error codes map to typed errors from the shared package:
//   - over_quota        : [shared.ErrOverQuota]
//   - pre_over_quota    : [shared.ErrPreOverQuota]
//   - foreign_node      : [shared.ErrForeignNode]
//   - not_found         : [shared.ErrNodeNotFound]
//   - parent_not_found  : [shared.ErrParentNotFound]
//   - permission_denied : [shared.ErrPermissionDenied]
//
// Inside a batch the first three abort the remaining work; everything else is counted.
//
// # APIService
//
// [APIService] sends raw requests to the proxy for the api debug command.
package services
