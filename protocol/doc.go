// Package protocol implements the Redis Serialization Protocol (RESP2)
// used by the embedded server and its tests.
//
// Requests are decoded with a Decoder, a resumable state machine fed with
// whatever bytes the connection produced. A request split across reads is
// completed on a later call to Next; several requests in one read are
// returned one at a time:
//
//	dec := protocol.NewDecoder()
//	for {
//		n, err := conn.Read(buf)
//		if err != nil {
//			return err
//		}
//		dec.Feed(buf[:n])
//		for {
//			cmd, err := dec.Next()
//			if errors.Is(err, protocol.ErrIncomplete) {
//				break
//			}
//			if err != nil {
//				return err // *ProtocolError, the connection is unusable
//			}
//			// dispatch cmd
//		}
//	}
//
// Both multibulk requests (*N\r\n$len\r\narg\r\n...) and inline requests
// (space separated words terminated by a newline) are accepted.
//
// Replies are encoded with a Writer and sent in one write per batch of
// pipelined requests.
package protocol
