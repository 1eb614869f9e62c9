/*
Package fetch talks to the content service.

# Fetching

Client issues GET requests through a retrying HTTP client
(github.com/hashicorp/go-retryablehttp). Every request carries the
pandabundle User-Agent and, when configured, the session cookie of a
signed-in browser. An optional token bucket limits the request rate.

Fetch never treats a non-success status as an error: it returns a Response
with OK unset so that callers can skip the file and carry on. Only transport
failures are returned as errors.

# Record sources

HTTPSource downloads the content listing of a site from

	{base}/direct/content/site/{site}.json

and decodes its content_collection array. FileSource reads the same document
(or a bare array of records) from disk, which is what the records and seed
commands write.
*/
package fetch
