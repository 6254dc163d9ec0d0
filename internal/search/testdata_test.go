// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

// sampleResultsHTML mimics the catalog's results page: a header row, a
// malformed short row, and four data rows exercising the title fallbacks.
const sampleResultsHTML = `<!DOCTYPE html>
<html><body>
<table id="tablelibgen" class="table">
  <thead><tr><th>Title</th><th>Author</th><th>Publisher</th><th>Year</th><th>Language</th><th>Pages</th><th>Size</th><th>Ext.</th><th>Mirrors</th></tr></thead>
  <tbody>
  <tr><td colspan="3">advertisement</td></tr>
  <tr>
    <td><a href="/edition.php?id=1"><b>Art of the Start 2.0</b></a> <i>ISBN 9780241187265</i></td>
    <td>Guy Kawasaki</td><td>Portfolio</td><td>2015</td><td>English</td><td>336</td>
    <td>1 MB</td><td>EPUB</td>
    <td><a href="/ads.php?md5=aaa">[1]</a><a href="https://library.lol/main/aaa">[2]</a></td>
  </tr>
  <tr>
    <td><a href="/edition.php?id=2">The Art of the Start</a></td>
    <td>Guy Kawasaki</td><td>Portfolio</td><td>2004</td><td>English</td><td>226</td>
    <td>2 MB</td><td>pdf</td>
    <td><a>[1]</a><a href="/ads.php?md5=bbb">[2]</a></td>
  </tr>
  <tr>
    <td><i>no title here</i></td>
    <td>Anonymous</td><td></td><td></td><td></td><td></td>
    <td>10 kB</td><td>djvu</td>
    <td></td>
  </tr>
  <tr>
    <td><b>   </b><a href="/edition.php?id=4">Linked Title</a></td>
    <td>Someone</td><td>Pub</td><td>1999</td><td>French</td><td>10</td>
    <td>3 MB</td><td>mobi</td>
    <td><a href="/ads.php?md5=ddd">[1]</a></td>
  </tr>
  </tbody>
</table>
</body></html>`

// emptyResultsHTML is a results page whose table has only its header.
const emptyResultsHTML = `<html><body>
<table id="tablelibgen"><tr><th>Title</th></tr></table>
</body></html>`
