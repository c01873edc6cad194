package web

// Search page and validator dashboard. The page talks to the JSON API only.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Validator Rewards Tracker</title>
  <script src="https://js.hsforms.net/forms/embed/v2.js"></script>
  <style>
    :root { --ink:#111111; --ink-mid:#52525b; --panel:#f4f4f5; --accent:#2563eb; --danger:#b91c1c; }
    * { box-sizing:border-box; }
    body { margin:0; font-family:system-ui,sans-serif; color:var(--ink); background:var(--panel); }
    main { max-width:1200px; margin:0 auto; padding:3rem 1.5rem; }
    h1 { margin:0 0 1rem; }
    .search { position:relative; display:flex; gap:.5rem; }
    .search input { flex:1; height:3rem; padding:0 1.2rem; border:2px solid #d4d4d8; border-radius:999px; }
    button { cursor:pointer; border:0; border-radius:.5rem; padding:.6rem 1.2rem; background:var(--accent); color:#fff; }
    button:disabled { background:#e4e4e7; color:#a1a1aa; cursor:not-allowed; }
    button.page { background:#e4e4e7; color:var(--ink); }
    button.page.current { background:var(--accent); color:#fff; }
    .dropdown { position:absolute; top:3.4rem; left:0; right:0; background:#fff; border:2px solid #d4d4d8; border-radius:.75rem; z-index:10; }
    .dropdown div { padding:.7rem 1rem; font-family:monospace; cursor:pointer; }
    .dropdown div:hover { background:var(--panel); }
    .cards { display:grid; grid-template-columns:1fr 1fr; gap:1.5rem; margin:2rem 0; }
    .card { background:#fff; border-radius:.75rem; padding:1.5rem; }
    .card .label { font-size:.8rem; color:var(--ink-mid); }
    .card .value { font-size:1.8rem; font-weight:700; margin-top:.5rem; }
    table { width:100%; border-collapse:collapse; background:#fff; }
    th, td { padding:.8rem 1.2rem; text-align:left; font-size:.85rem; border-bottom:1px solid #e4e4e7; }
    th { text-transform:uppercase; font-size:.7rem; color:var(--ink-mid); }
    .bar { display:flex; justify-content:space-between; align-items:center; padding:1rem 0; }
    .error { background:#fef2f2; border:1px solid #fecaca; color:var(--danger); padding:1rem; border-radius:.5rem; }
    .modal { position:fixed; inset:0; background:rgba(0,0,0,.5); display:flex; align-items:center; justify-content:center; }
    .modal .body { background:#fff; border-radius:.75rem; width:min(640px,92vw); max-height:90vh; overflow-y:auto; padding:1.5rem; }
    .hidden { display:none; }
  </style>
</head>
<body>
<main>
  <section id="search">
    <h1>Validator Rewards Tracker</h1>
    <p>Enter a validator address to track staking rewards</p>
    <form id="searchForm" class="search">
      <input id="address" autocomplete="off" placeholder="Enter validator address (e.g., 0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb)" />
      <button type="submit">Search</button>
      <div id="examples" class="dropdown hidden"></div>
    </form>
  </section>

  <section id="dashboard" class="hidden">
    <div class="bar">
      <div>
        <a href="/">&larr; Back to Search</a>
        <h1 id="title"></h1>
      </div>
      <button id="downloadBtn">Download .csv</button>
    </div>
    <p id="loading">Loading validator data...</p>
    <div id="error" class="error hidden"></div>
    <div id="data" class="hidden">
      <div class="cards">
        <div class="card"><div class="label">Latest Balance</div><div id="latest" class="value"></div></div>
        <div class="card"><div class="label">Balance 24 Hours Ago</div><div id="prior" class="value"></div></div>
      </div>
      <div class="bar">
        <label>Show: <select id="size"></select> entries</label>
        <span id="showing"></span>
      </div>
      <table>
        <thead><tr>
          <th>Block Time</th><th>Post Balance</th><th>Pre Balance</th>
          <th>Rewards in ETH</th><th>Rewards in USD</th><th>Transaction Signature</th>
        </tr></thead>
        <tbody id="rows"></tbody>
      </table>
      <div class="bar">
        <span id="pageOf"></span>
        <div id="pager"></div>
      </div>
    </div>
  </section>
</main>

<div id="formModal" class="modal hidden">
  <div class="body">
    <div class="bar"><h2>Contact Us</h2><button id="closeForm">&times;</button></div>
    <p>Please complete the form below to download the CSV file.</p>
    <div id="hubspot-form-wrapper"></div>
  </div>
</div>

<script>
let viewID = null;
let current = null;

const $ = (id) => document.getElementById(id);
const show = (id, on) => $(id).classList.toggle('hidden', !on);

async function api(method, path){
  const res = await fetch(path, { method, headers:{ 'Content-Type':'application/json' } });
  return res;
}

async function loadExamples(q){
  const res = await fetch('/api/examples?q=' + encodeURIComponent(q || ''));
  const body = await res.json();
  const box = $('examples');
  box.innerHTML = '';
  body.addresses.forEach((addr) => {
    const item = document.createElement('div');
    item.textContent = addr;
    item.onclick = () => { $('address').value = addr; show('examples', false); };
    box.appendChild(item);
  });
  show('examples', body.addresses.length > 0);
}

$('address').addEventListener('focus', () => loadExamples(''));
$('address').addEventListener('input', (e) => loadExamples(e.target.value));
document.addEventListener('mousedown', (e) => {
  if(!$('searchForm').contains(e.target)){ show('examples', false); }
});

$('searchForm').addEventListener('submit', async (e) => {
  e.preventDefault();
  const address = $('address').value.trim();
  if(!address){ return; }
  show('search', false);
  show('dashboard', true);
  show('loading', true);
  const res = await fetch('/api/views', {
    method:'POST',
    headers:{ 'Content-Type':'application/json' },
    body: JSON.stringify({ address })
  });
  const body = await res.json();
  if(!res.ok){
    render({ error: body.error || 'Failed to fetch validator data', short_address: address, rows: [] });
    return;
  }
  viewID = body.id;
  render(body.view);
});

async function goTo(params){
  const res = await api('GET', '/api/views/' + viewID + '?' + new URLSearchParams(params));
  const body = await res.json();
  if(res.ok){ render(body.view); }
}

function render(view){
  current = view;
  show('loading', false);
  $('title').textContent = 'Validator: ' + view.short_address;
  show('error', !!view.error);
  show('data', !view.error);
  if(view.error){
    $('error').textContent = 'Error: ' + view.error;
    return;
  }
  $('latest').textContent = view.latest_balance;
  $('prior').textContent = view.prior_balance;

  const p = view.pagination;
  const size = $('size');
  size.innerHTML = '';
  p.size_options.forEach((n) => {
    const opt = document.createElement('option');
    opt.value = n; opt.textContent = n; opt.selected = n === p.page_size;
    size.appendChild(opt);
  });
  size.onchange = () => goTo({ size: size.value });
  $('showing').textContent = 'Showing ' + p.from + ' to ' + p.to + ' of ' + p.total + ' entries';

  const rows = $('rows');
  rows.innerHTML = '';
  if(view.rows.length === 0){
    rows.innerHTML = '<tr><td colspan="6">No transaction data available for this validator in the last 24 hours.</td></tr>';
  }
  view.rows.forEach((r) => {
    const tr = document.createElement('tr');
    [r.block_time, r.post_balance, r.pre_balance, r.reward, r.reward_usd].forEach((text) => {
      const td = document.createElement('td');
      td.textContent = text;
      tr.appendChild(td);
    });
    const link = document.createElement('a');
    link.href = r.tx_url; link.target = '_blank'; link.rel = 'noopener noreferrer';
    link.textContent = r.short_hash;
    const td = document.createElement('td');
    td.appendChild(link);
    tr.appendChild(td);
    rows.appendChild(tr);
  });

  $('pageOf').textContent = 'Page ' + p.page + ' of ' + p.page_count;
  const pagerEl = $('pager');
  pagerEl.innerHTML = '';
  const button = (label, page, disabled, cls) => {
    const b = document.createElement('button');
    b.textContent = label; b.disabled = disabled; b.className = cls || '';
    b.onclick = () => goTo({ page });
    pagerEl.appendChild(b);
  };
  button('Previous', p.page - 1, !p.has_prev);
  p.window.forEach((n) => button(String(n), n, false, n === p.page ? 'page current' : 'page'));
  button('Next', p.page + 1, !p.has_next);
}

$('downloadBtn').addEventListener('click', async () => {
  if(!viewID){ return; }
  const res = await api('POST', '/api/views/' + viewID + '/export');
  if(!res.ok){ return; }
  const body = await res.json();
  show('formModal', true);
  $('hubspot-form-wrapper').innerHTML = '';
  hbspt.forms.create({
    portalId: body.form.portal_id,
    formId: body.form.form_id,
    target: '#hubspot-form-wrapper',
    onFormSubmitted: () => download(body.form.completion_url)
  });
});

async function download(url){
  const res = await api('POST', url);
  show('formModal', false);
  if(res.status !== 200){ return; }
  const disposition = res.headers.get('Content-Disposition') || '';
  const match = /filename="?([^";]+)"?/.exec(disposition);
  const blob = await res.blob();
  const link = document.createElement('a');
  link.href = URL.createObjectURL(blob);
  link.download = match ? match[1] : 'rewards.csv';
  document.body.appendChild(link);
  link.click();
  document.body.removeChild(link);
}

$('closeForm').addEventListener('click', async () => {
  show('formModal', false);
  if(viewID){ await api('POST', '/api/views/' + viewID + '/export/cancel'); }
});
</script>
</body>
</html>`
