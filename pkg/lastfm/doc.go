// Package lastfm provides a client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements a read-only Go client for the user.* listening
// history methods of the Last.fm API. It provides a type-safe API with
// context support, structured errors, retry logic and a token-bucket rate
// limiter that keeps every client under the documented request ceiling.
//
// # Quick Start
//
//	import "github.com/jfmyers9/borahae/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey: "your-api-key",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	charts, err := client.User().GetWeeklyChartList(ctx, "someone")
//
// # Normalized Records
//
// Last.fm is inconsistent about the shape of its JSON. Artists and albums
// arrive as a bare string, {"name": ...} or {"#text": ...}; lists with one
// element collapse to a single object; play counts are numeric strings. All
// of that is absorbed by the decoders in this package, so callers only ever
// see Track, Ref, Count and List values of one shape.
//
// # Rate Limiting
//
// Every request first takes a token from the client's RateLimiter. The
// bucket holds five tokens and refills at five per second. Concurrent
// callers sharing one Client share the bucket:
//
//	lim := client.Limiter()
//	fmt.Println(lim.Tokens(time.Now()))
//
// # Error Handling
//
// Logical failures, which Last.fm reports with HTTP 200 and an error body,
// are returned as *Error. Requests that never produced a usable response
// are returned as *FetchError:
//
//	tracks, err := client.User().GetWeeklyTrackChart(ctx, user, from, to)
//	if err != nil {
//	    var lastfmErr *lastfm.Error
//	    if errors.As(err, &lastfmErr) && lastfmErr.NotFound() {
//	        // No such user
//	    }
//	}
//
// Temporary API errors (codes 11, 16 and 29), HTTP 5xx responses and network
// errors are retried with exponential backoff before being returned.
//
// # Context Support
//
// All API methods accept a context.Context for cancellation and timeouts.
// In addition, Config.RequestTimeout bounds every individual request:
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
//	defer cancel()
//
//	info, err := client.User().GetInfo(ctx, "someone")
//
// # API Coverage
//
// Currently implemented:
//   - user.getInfo
//   - user.getRecentTracks
//   - user.getTopTracks, user.getTopArtists, user.getTopAlbums
//   - user.getWeeklyChartList, user.getWeeklyTrackChart
//
// # Last.fm API Documentation
//
// For more information about the Last.fm API:
// https://www.last.fm/api
package lastfm
